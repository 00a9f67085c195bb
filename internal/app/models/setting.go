package models

// Well-known institution setting keys
const (
	SettingInstitutionName    = "institution_name"
	SettingInstitutionAddress = "institution_address"
	SettingIDPrefix           = "id_prefix"
	SettingCurrency           = "currency"
	SettingLogoPath           = "logo_path"
	SettingRegistrarName      = "registrar_name"
	SettingAcademicYear       = "academic_year"
	SettingAcceptanceDeadline = "acceptance_deadline"
	SettingVoucherPricePrefix = "voucher_price_"
)

// InstitutionSettings is the typed view of the settings used by letters and IDs
type InstitutionSettings struct {
	Name               string
	Address            string
	IDPrefix           string
	Currency           string
	LogoPath           string
	RegistrarName      string
	AcademicYear       string
	AcceptanceDeadline string
}

// InstitutionFromMap builds InstitutionSettings with fallbacks for absent keys
func InstitutionFromMap(m map[string]string) InstitutionSettings {
	get := func(key, fallback string) string {
		if v, ok := m[key]; ok && v != "" {
			return v
		}
		return fallback
	}
	return InstitutionSettings{
		Name:               get(SettingInstitutionName, "University"),
		Address:            get(SettingInstitutionAddress, ""),
		IDPrefix:           get(SettingIDPrefix, "UNI"),
		Currency:           get(SettingCurrency, "GHS"),
		LogoPath:           get(SettingLogoPath, ""),
		RegistrarName:      get(SettingRegistrarName, "The Registrar"),
		AcademicYear:       get(SettingAcademicYear, ""),
		AcceptanceDeadline: get(SettingAcceptanceDeadline, ""),
	}
}

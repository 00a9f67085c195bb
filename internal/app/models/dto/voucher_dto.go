package dto

// GenerateVouchersRequest asks for a batch of Unsold vouchers
type GenerateVouchersRequest struct {
	Count int    `json:"count" binding:"required,min=1,max=1000" example:"100"`
	Type  string `json:"type" binding:"required" example:"Undergraduate"`
	Price int64  `json:"price" binding:"required,min=0" example:"15000"`
}

// VoucherFilterRequest carries voucher listing parameters
type VoucherFilterRequest struct {
	Status string `form:"status" binding:"omitempty,oneof=Unsold Sold Used Expired"`
	Type   string `form:"type"`
}

// VoucherPurchaseRequest starts an online voucher purchase
type VoucherPurchaseRequest struct {
	Email string `json:"email" binding:"required,email"`
	Phone string `json:"phone" binding:"omitempty,max=20"`
	Type  string `json:"type" binding:"required" example:"Undergraduate"`
}

// PaymentInitResponse is returned after a gateway transaction is initialized
type PaymentInitResponse struct {
	Reference        string `json:"reference" example:"VCH-7f0b7c1e-..."`
	AuthorizationURL string `json:"authorizationUrl"`
	AccessCode       string `json:"accessCode,omitempty"`
	Amount           int64  `json:"amount"`
}

// VoucherCredentials are shown to the buyer after confirmation
type VoucherCredentials struct {
	SerialNumber string `json:"serialNumber"`
	PIN          string `json:"pin"`
	Type         string `json:"type"`
}

// PaymentVerifyResponse reports the outcome of a payment
type PaymentVerifyResponse struct {
	Reference string              `json:"reference"`
	Status    string              `json:"status"`
	Purpose   string              `json:"purpose"`
	Amount    int64               `json:"amount"`
	Voucher   *VoucherCredentials `json:"voucher,omitempty"`
	InvoiceID *int64              `json:"invoiceId,omitempty"`
}

// PaymentFilterRequest carries payment listing parameters
type PaymentFilterRequest struct {
	Status  string `form:"status" binding:"omitempty,oneof=Pending Success Failed"`
	Purpose string `form:"purpose" binding:"omitempty,oneof=voucher invoice"`
}

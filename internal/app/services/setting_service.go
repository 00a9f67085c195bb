package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/yigit/uniadmit/internal/app/repositories"
	"github.com/yigit/uniadmit/internal/pkg/apperrors"
)

const maxSettingKeyLength = 100

// SettingService exposes institution settings
type SettingService struct {
	repos  *repositories.Repositories
	logger zerolog.Logger
}

// NewSettingService creates a new SettingService
func NewSettingService(repos *repositories.Repositories, logger zerolog.Logger) *SettingService {
	return &SettingService{repos: repos, logger: logger}
}

// GetAll returns every setting as text
func (s *SettingService) GetAll(ctx context.Context) (map[string]string, error) {
	settings, err := s.repos.Settings.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	return settings, nil
}

// Update upserts settings. Values are stored as text: numbers without an
// exponent, booleans as true or false.
func (s *SettingService) Update(ctx context.Context, values map[string]interface{}) (map[string]string, error) {
	if len(values) == 0 {
		return nil, apperrors.NewValidationError("no settings provided")
	}
	coerced := make(map[string]string, len(values))
	for key, value := range values {
		key = strings.TrimSpace(key)
		if key == "" || len(key) > maxSettingKeyLength {
			return nil, apperrors.NewValidationError(fmt.Sprintf("invalid setting key %q", key))
		}
		text, err := CoerceSetting(value)
		if err != nil {
			return nil, apperrors.NewValidationError(fmt.Sprintf("setting %s: %v", key, err))
		}
		coerced[key] = text
	}

	if err := s.repos.Settings.Upsert(ctx, coerced); err != nil {
		return nil, fmt.Errorf("failed to save settings: %w", err)
	}
	s.logger.Info().Int("count", len(coerced)).Msg("Settings updated")
	return s.GetAll(ctx)
}

// CoerceSetting renders a decoded JSON scalar as setting text
func CoerceSetting(value interface{}) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return strconv.FormatFloat(f, 'f', -1, 64), nil
		}
		return v.String(), nil
	default:
		return "", fmt.Errorf("unsupported value type %T", value)
	}
}

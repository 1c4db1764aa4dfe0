package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/aussiebroadwan/authcore/internal/auth/domain"
	"github.com/aussiebroadwan/authcore/internal/auth/store"
)

// SettingsReader is the read side of store.Settings.
type SettingsReader interface {
	FindOneByName(ctx context.Context, name string) (domain.Setting, error)
}

// SettingsProvider hands out typed settings. A setting that does not exist
// yields the fallback; any other failure is returned.
type SettingsProvider interface {
	GetBool(ctx context.Context, name string, fallback bool) (bool, error)
	GetInt(ctx context.Context, name string, fallback int) (int, error)
	GetString(ctx context.Context, name string, fallback string) (string, error)
	GetStrings(ctx context.Context, name string, fallback []string) ([]string, error)
}

// SettingService reads settings through the store on every call so changes
// apply without a restart.
type SettingService struct {
	Settings SettingsReader
}

var _ SettingsProvider = (*SettingService)(nil)

// CheckValue reports whether value is acceptable for a setting of type typ.
func CheckValue(value string, typ domain.SettingType) bool {
	switch typ {
	case domain.SettingBoolean:
		return value == "true" || value == "false"
	case domain.SettingNumber:
		_, err := strconv.ParseFloat(value, 64)
		return err == nil
	case domain.SettingString, domain.SettingArrayOfString:
		return true
	}
	return false
}

// GetValue coerces the stored string by its type tag into bool, float64,
// string or []string.
func GetValue(s domain.Setting) (any, error) {
	if !CheckValue(s.Value, s.Type) {
		return nil, fmt.Errorf("%w: %s=%q (%s)", ErrSettingValue, s.Name, s.Value, s.Type)
	}

	switch s.Type {
	case domain.SettingBoolean:
		return s.Value == "true", nil
	case domain.SettingNumber:
		return strconv.ParseFloat(s.Value, 64)
	case domain.SettingArrayOfString:
		return strings.Split(s.Value, ","), nil
	}
	return s.Value, nil
}

// lookup returns ok=false when the setting does not exist.
func (s *SettingService) lookup(ctx context.Context, name string, want domain.SettingType) (domain.Setting, bool, error) {
	setting, err := s.Settings.FindOneByName(ctx, name)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Setting{}, false, nil
	}
	if err != nil {
		return domain.Setting{}, false, fmt.Errorf("service: read setting %s: %w", name, err)
	}
	if setting.Type != want {
		return domain.Setting{}, false, fmt.Errorf("%w: %s is %s, want %s", ErrSettingValue, name, setting.Type, want)
	}
	return setting, true, nil
}

func (s *SettingService) GetBool(ctx context.Context, name string, fallback bool) (bool, error) {
	setting, ok, err := s.lookup(ctx, name, domain.SettingBoolean)
	if err != nil || !ok {
		return fallback, err
	}
	v, err := GetValue(setting)
	if err != nil {
		return fallback, err
	}
	return v.(bool), nil
}

// GetInt rejects NUMBER values with a fractional part.
func (s *SettingService) GetInt(ctx context.Context, name string, fallback int) (int, error) {
	setting, ok, err := s.lookup(ctx, name, domain.SettingNumber)
	if err != nil || !ok {
		return fallback, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(setting.Value))
	if err != nil {
		return fallback, fmt.Errorf("%w: %s=%q is not an integer", ErrSettingValue, name, setting.Value)
	}
	return n, nil
}

func (s *SettingService) GetString(ctx context.Context, name string, fallback string) (string, error) {
	setting, ok, err := s.lookup(ctx, name, domain.SettingString)
	if err != nil || !ok {
		return fallback, err
	}
	return setting.Value, nil
}

func (s *SettingService) GetStrings(ctx context.Context, name string, fallback []string) ([]string, error) {
	setting, ok, err := s.lookup(ctx, name, domain.SettingArrayOfString)
	if err != nil || !ok {
		return fallback, err
	}
	return strings.Split(setting.Value, ","), nil
}

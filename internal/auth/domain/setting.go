package domain

import "time"

// SettingType is the declared type tag of a stored setting value.
type SettingType string

const (
	SettingBoolean       SettingType = "BOOLEAN"
	SettingNumber        SettingType = "NUMBER"
	SettingString        SettingType = "STRING"
	SettingArrayOfString SettingType = "ARRAY_OF_STRING"
)

func (t SettingType) Valid() bool {
	switch t {
	case SettingBoolean, SettingNumber, SettingString, SettingArrayOfString:
		return true
	}
	return false
}

// Names of settings read by the attempt policy.
const (
	SettingPasswordAttempt    = "passwordAttempt"
	SettingMaxPasswordAttempt = "maxPasswordAttempt"
)

// Setting is a dynamically configurable value stored as a string.
type Setting struct {
	ID          string
	Name        string
	Description string
	Type        SettingType
	Value       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

package models

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SettingType is the declared type of a setting value.
type SettingType string

const (
	SettingTypeString SettingType = "string"
	SettingTypeInt    SettingType = "int"
	SettingTypeBool   SettingType = "bool"
	SettingTypeJSON   SettingType = "json"
)

// Setting is one row of the typed settings store.
type Setting struct {
	Key         string      `json:"key"`
	Value       string      `json:"value"`
	ValueType   SettingType `json:"value_type"`
	Description string      `json:"description,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// IntValue parses the value as an integer.
func (s *Setting) IntValue() (int, error) {
	if s.ValueType != SettingTypeInt {
		return 0, fmt.Errorf("setting %q is %s, not int", s.Key, s.ValueType)
	}
	return strconv.Atoi(strings.TrimSpace(s.Value))
}

// BoolValue parses the value as a boolean.
func (s *Setting) BoolValue() bool {
	switch strings.ToLower(strings.TrimSpace(s.Value)) {
	case "true", "1", "yes":
		return true
	default:
		return false
	}
}

// JSONValue unmarshals the value into dst.
func (s *Setting) JSONValue(dst interface{}) error {
	return json.Unmarshal([]byte(s.Value), dst)
}

// SettingRepository defines persistence operations for settings.
type SettingRepository interface {
	// Get retrieves a setting by key. Returns (nil, nil) when absent.
	Get(ctx context.Context, key string) (*Setting, error)

	ListAll(ctx context.Context) ([]*Setting, error)

	// Upsert creates or replaces a setting by key.
	Upsert(ctx context.Context, setting *Setting) error
}

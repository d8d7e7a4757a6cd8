package client

import (
	"encoding/json"

	"github.com/spf13/cast"
)

// Upstream payloads are decoded into generic JSON values first and then read
// field by field, so a missing or wrongly-typed field never fails the whole
// response.

func decodeJSON(raw []byte) (any, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func asObject(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func asArray(v any) ([]any, bool) {
	a, ok := v.([]any)
	return a, ok
}

// optFloat returns nil when the field is absent, null, boolean or not numeric.
func optFloat(m map[string]any, key string) *float64 {
	v, ok := m[key]
	if !ok || v == nil {
		return nil
	}
	if _, isBool := v.(bool); isBool {
		return nil
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return nil
	}
	return &f
}

// optString returns nil when the field is absent, null or not representable as text.
func optString(m map[string]any, key string) *string {
	v, ok := m[key]
	if !ok || v == nil {
		return nil
	}
	if _, isObj := v.(map[string]any); isObj {
		return nil
	}
	if _, isArr := v.([]any); isArr {
		return nil
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return nil
	}
	return &s
}

func floatOr(m map[string]any, key string, def float64) float64 {
	if f := optFloat(m, key); f != nil {
		return *f
	}
	return def
}

// stringOr treats an empty string like an absent one.
func stringOr(m map[string]any, key, def string) string {
	if s := optString(m, key); s != nil && *s != "" {
		return *s
	}
	return def
}

// truthy mirrors loose boolean checks on upstream flags ("success": true / 1 / "true").
func truthy(m map[string]any, key string) bool {
	v, ok := m[key]
	if !ok || v == nil {
		return false
	}
	b, err := cast.ToBoolE(v)
	return err == nil && b
}

package models

import (
	"bytes"
	"encoding/json"
)

// OptionalString is a JSON string field with three states: absent, explicitly
// cleared (null or ""), or set to a value.
type OptionalString struct {
	Present bool
	Value   string
}

// SetString returns an OptionalString holding v. An empty v clears.
func SetString(v string) OptionalString {
	return OptionalString{Present: true, Value: v}
}

// ClearString returns an OptionalString that clears the field.
func ClearString() OptionalString {
	return OptionalString{Present: true}
}

// UnmarshalJSON is only invoked when the key is present in the document,
// which is what makes "absent" distinguishable from null.
func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Present = true
	if bytes.Equal(data, []byte("null")) {
		o.Value = ""
		return nil
	}
	return json.Unmarshal(data, &o.Value)
}

// MarshalJSON encodes a cleared or absent value as null. Callers that need to
// omit the key entirely must build the payload themselves.
func (o OptionalString) MarshalJSON() ([]byte, error) {
	if !o.Present || o.Value == "" {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

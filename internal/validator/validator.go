// Package validator collects per-field input problems.
package validator

import (
	"encoding/json"
	"regexp"
	"sort"
	"strings"
)

var emailRegexp = regexp.MustCompile("^[a-zA-Z0-9.!#$%&'*+/=?^_`{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$")

// Validator records the first failure message for each field.
type Validator struct {
	Errors map[string]string
}

// New returns an empty Validator.
func New() *Validator {
	return &Validator{Errors: make(map[string]string)}
}

// Valid reports whether no checks have failed.
func (v *Validator) Valid() bool {
	return len(v.Errors) == 0
}

// Check records msg under key unless cond holds. Only the first failure per key is kept.
func (v *Validator) Check(cond bool, key, msg string) {
	if cond {
		return
	}
	if _, ok := v.Errors[key]; !ok {
		v.Errors[key] = msg
	}
}

// CheckRequired fails key when value is blank.
func (v *Validator) CheckRequired(value, key string) {
	v.Check(strings.TrimSpace(value) != "", key, "must be provided")
}

// CheckEmail requires a well-formed address under the "email" key.
func (v *Validator) CheckEmail(email string) {
	v.Check(email != "", "email", "must be provided")
	v.Check(emailRegexp.MatchString(email), "email", "must be a valid email address")
}

// CheckPassword enforces bcrypt's 72 byte input limit.
func (v *Validator) CheckPassword(password string) {
	v.Check(password != "", "password", "must be provided")
	v.Check(len(password) >= 6, "password", "must be at least 6 characters long")
	v.Check(len(password) <= 72, "password", "must be at most 72 characters long")
}

// Fields returns the failing field names in sorted order.
func (v *Validator) Fields() []string {
	fields := make([]string, 0, len(v.Errors))
	for k := range v.Errors {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	return fields
}

// String renders the failures as a JSON object.
func (v *Validator) String() string {
	data, err := json.Marshal(v.Errors)
	if err != nil {
		return ""
	}
	return string(data)
}

// Package validator wraps go-playground/validator so handlers depend on a
// single injected instance rather than the package-level singleton.
package validator

import "github.com/go-playground/validator/v10"

// Validator validates request DTOs against their struct tags.
type Validator struct {
	v *validator.Validate
}

// New returns a Validator ready for use. Custom tags are added through
// RegisterValidation.
func New() *Validator {
	return &Validator{v: validator.New()}
}

// Struct validates s against its validation tags.
func (val *Validator) Struct(s interface{}) error {
	return val.v.Struct(s)
}

// Var validates a single value against a tag expression.
func (val *Validator) Var(field interface{}, tag string) error {
	return val.v.Var(field, tag)
}

// RegisterValidation adds a custom validation function under tag.
func (val *Validator) RegisterValidation(tag string, fn validator.Func) error {
	return val.v.RegisterValidation(tag, fn)
}

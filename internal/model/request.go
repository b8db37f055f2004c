package model

import (
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// ErrValidation marks a write request that is missing required fields.
var ErrValidation = errors.New("validation failed")

// MaxNameLength bounds item and category names.
const MaxNameLength = 255

// AddItemRequest is the body of a create-item request.
type AddItemRequest struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	UnitType string `json:"unit_type,omitempty"`
}

// Normalize trims surrounding whitespace from every field.
func (r *AddItemRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Category = strings.TrimSpace(r.Category)
	r.UnitType = strings.TrimSpace(r.UnitType)
}

// Validate checks the trimmed request. Failures wrap ErrValidation.
func (r AddItemRequest) Validate() error {
	err := validation.ValidateStruct(&r,
		validation.Field(&r.Name,
			validation.Required.Error("item name is required"),
			validation.RuneLength(1, MaxNameLength),
		),
		validation.Field(&r.Category,
			validation.Required.Error("category is required"),
			validation.RuneLength(1, MaxNameLength),
		),
	)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrValidation, err.Error())
	}
	return nil
}

// ListRequest is the body of preview and finalize requests.
type ListRequest struct {
	Items []ListItem `json:"items"`
	Amend bool       `json:"amend,omitempty"`
}

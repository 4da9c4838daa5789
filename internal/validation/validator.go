// Package validation provides request validation using the validator/v10 library.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/bitcoinworld/arcade-server/internal/auth"
	"github.com/bitcoinworld/arcade-server/internal/domain"
	domainerrors "github.com/bitcoinworld/arcade-server/internal/errors"
)

// Validator wraps go-playground/validator with domain error conversion.
type Validator struct {
	v *validator.Validate
}

// New creates a validator configured for arcade requests. Besides the
// built-in tags it understands "gametype" for members of the game catalog
// and "wallet" for Stacks or EVM wallet addresses.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Use JSON tag names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	//nolint:errcheck // only fails for an empty tag or nil func
	_ = v.RegisterValidation("gametype", func(fl validator.FieldLevel) bool {
		return domain.GameType(fl.Field().String()).Valid()
	})

	//nolint:errcheck // only fails for an empty tag or nil func
	_ = v.RegisterValidation("wallet", func(fl validator.FieldLevel) bool {
		return auth.ValidWalletAddress(fl.Field().String())
	})

	return &Validator{v: v}
}

// Validate validates a struct and returns a VALIDATION error listing each bad field.
func (v *Validator) Validate(s any) error {
	if err := v.v.Struct(s); err != nil {
		return v.formatError(err)
	}
	return nil
}

func (v *Validator) formatError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	fieldErrors := make(map[string]string, len(validationErrs))
	for _, e := range validationErrs {
		fieldErrors[e.Field()] = friendlyMessage(e)
	}

	fields := make([]string, 0, len(fieldErrors))
	for f := range fieldErrors {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f + " " + fieldErrors[f]
	}

	return domainerrors.InvalidInputWithDetails("Validation failed: "+strings.Join(parts, "; "), fieldErrors)
}

func friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "gametype":
		return "must be one of: " + strings.Join(gameTypeNames(), ", ")
	case "wallet", "eth_addr":
		return "must be a valid wallet address"
	case "uuid", "uuid4":
		return "must be a valid UUID"
	case "oneof":
		return "must be one of: " + e.Param()
	case "min":
		return fmt.Sprintf("must be at least %s", e.Param())
	case "max":
		return fmt.Sprintf("must not exceed %s", e.Param())
	case "gte":
		return "must be greater than or equal to " + e.Param()
	case "lte":
		return "must be less than or equal to " + e.Param()
	case "gt":
		return "must be greater than " + e.Param()
	case "lt":
		return "must be less than " + e.Param()
	default:
		return "is invalid"
	}
}

func gameTypeNames() []string {
	types := domain.AllGameTypes()
	names := make([]string, len(types))
	for i, g := range types {
		names[i] = string(g)
	}
	return names
}

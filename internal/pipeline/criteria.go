package pipeline

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Defaults for the user-facing criteria, used by the CLI prompts and
// flags.
const (
	DefaultPostalCode = "M5G 1N8"
	DefaultRadiusKM   = 50
	DefaultMaxMileage = 50000
	DefaultYearRange  = "2019-2024"
	DefaultMaxPrice   = 25000
	DefaultTerms      = "Nissan Murano, Mazda CX-5, Toyota RAV4, Honda CR-V"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Criteria carries everything the user asked for in one search run.
// MaxMileage and MaxPrice use zero as an explicit "unbounded" sentinel.
type Criteria struct {
	SearchTerms []string `validate:"required,min=1,dive,required"`
	PostalCode  string   `validate:"required"`
	RadiusKM    int      `validate:"gt=0"`
	MaxMileage  int      `validate:"gte=0"`
	YearRange   string   `validate:"required"`
	MaxPrice    float64  `validate:"gte=0"`
}

// Validate checks the criteria, returning a configuration-level error
// that should abort the run.
func (c Criteria) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid search criteria: %w", err)
	}
	return nil
}

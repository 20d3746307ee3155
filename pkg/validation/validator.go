package validation

import (
	"errors"
	"fmt"
	"math"
	"regexp"

	"github.com/go-playground/validator/v10"
)

var (
	// validate is a singleton validator instance
	validate *validator.Validate

	// Validation constants
	MaxNameLength        = 50
	MaxSpecies           = 20
	CompositionTolerance = 1e-6

	// Flowsheet identifiers: units, arcs, ports, stages
	namePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
)

func init() {
	validate = validator.New()
}

// GuessRequest represents a request to register a tear guess on an arc
type GuessRequest struct {
	Arc         string             `json:"arc" validate:"required,min=1,max=50"`
	Flow        float64            `json:"flow" validate:"required,gt=0"`
	Temperature float64            `json:"temperature" validate:"required,gt=0"`
	Pressure    float64            `json:"pressure" validate:"required,gt=0"`
	Composition map[string]float64 `json:"composition" validate:"required,min=1,max=20"`
}

// StageRequest represents a staged re-initialization edit
type StageRequest struct {
	Name       string   `json:"name" validate:"required,min=1,max=50"`
	Deactivate []string `json:"deactivate" validate:"omitempty,dive,min=1,max=50"`
	Activate   []string `json:"activate" validate:"omitempty,dive,min=1,max=50"`
}

// ValidateGuessRequest validates a tear guess registration request
func ValidateGuessRequest(req *GuessRequest) error {
	if req == nil {
		return errors.New("guess request cannot be nil")
	}

	// Validate using struct tags
	if err := validate.Struct(req); err != nil {
		return formatValidationError(err)
	}

	if err := ValidateName(req.Arc); err != nil {
		return fmt.Errorf("Arc: %w", err)
	}

	return ValidateComposition(req.Composition)
}

// ValidateStageRequest validates a staged re-initialization request
func ValidateStageRequest(req *StageRequest) error {
	if req == nil {
		return errors.New("stage request cannot be nil")
	}

	if err := validate.Struct(req); err != nil {
		return formatValidationError(err)
	}

	if err := ValidateName(req.Name); err != nil {
		return fmt.Errorf("Name: %w", err)
	}
	for i, arc := range req.Deactivate {
		if err := ValidateName(arc); err != nil {
			return fmt.Errorf("Deactivate[%d]: %w", i, err)
		}
	}
	for i, arc := range req.Activate {
		if err := ValidateName(arc); err != nil {
			return fmt.Errorf("Activate[%d]: %w", i, err)
		}
	}

	return nil
}

// ValidateName validates a flowsheet identifier (unit, arc, port or stage name)
func ValidateName(name string) error {
	if name == "" {
		return errors.New("name cannot be empty")
	}
	if len(name) > MaxNameLength {
		return fmt.Errorf("name '%s' exceeds maximum length of %d characters", name, MaxNameLength)
	}
	if !namePattern.MatchString(name) {
		return fmt.Errorf("name '%s' is invalid (must start with a lowercase letter, followed by lowercase alphanumeric or underscore)", name)
	}
	return nil
}

// ValidateComposition validates that mole fractions are non-negative and
// sum to one within tolerance. Zero fractions are legal.
func ValidateComposition(comp map[string]float64) error {
	if len(comp) == 0 {
		return errors.New("composition cannot be empty")
	}
	if len(comp) > MaxSpecies {
		return fmt.Errorf("composition has %d species, maximum is %d", len(comp), MaxSpecies)
	}

	sum := 0.0
	for species, frac := range comp {
		// Species symbols are chemical formulas, not snake_case names;
		// only the empty key is rejected here.
		if species == "" {
			return errors.New("composition species cannot be empty")
		}
		if frac < 0 {
			return fmt.Errorf("composition: fraction for '%s' is negative (%g)", species, frac)
		}
		if math.IsNaN(frac) || math.IsInf(frac, 0) {
			return fmt.Errorf("composition: fraction for '%s' is not finite", species)
		}
		sum += frac
	}
	if math.Abs(sum-1) > CompositionTolerance {
		return fmt.Errorf("composition sums to %g, must be 1 within %g", sum, CompositionTolerance)
	}
	return nil
}

// formatValidationError converts validator errors to a more user-friendly format
func formatValidationError(err error) error {
	if err == nil {
		return nil
	}

	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	// Return the first validation error in a user-friendly format
	for _, e := range validationErrs {
		field := e.Field()
		tag := e.Tag()
		param := e.Param()

		switch tag {
		case "required":
			return fmt.Errorf("%s: field is required", field)
		case "min":
			return fmt.Errorf("%s: must be at least %s", field, param)
		case "max":
			return fmt.Errorf("%s: must not exceed %s", field, param)
		case "gt":
			return fmt.Errorf("%s: must be greater than %s", field, param)
		case "dive":
			// For array elements
			return fmt.Errorf("%s: invalid element in array", field)
		default:
			return fmt.Errorf("%s: validation failed (%s)", field, tag)
		}
	}

	return err
}

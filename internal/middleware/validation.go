package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	apperrors "allocdash/internal/errors"
	"allocdash/pkg/contracts/domain"
)

// DateLayout is the query-string date format
const DateLayout = "2006-01-02"

// RequestValidator validates bound request structs using struct tags
type RequestValidator struct {
	validator *validator.Validate
	logger    *slog.Logger
}

// NewRequestValidator registers the dashboard's custom tags:
// isodate, dataset and metric
func NewRequestValidator(logger *slog.Logger) *RequestValidator {
	v := validator.New()

	_ = v.RegisterValidation("isodate", isISODate)
	_ = v.RegisterValidation("dataset", isDataset)
	_ = v.RegisterValidation("metric", isMetric)

	// Report fields by their query/json names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"query", "json"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})

	return &RequestValidator{
		validator: v,
		logger:    logger.With(slog.String("component", "request_validator")),
	}
}

// ValidateStruct validates v and returns an APIError listing every
// failing field
func (m *RequestValidator) ValidateStruct(v interface{}) error {
	err := m.validator.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	validationErrors := make([]apperrors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		validationErrors = append(validationErrors, apperrors.ValidationError{
			Field:   fe.Field(),
			Message: formatValidationError(fe),
		})
	}

	m.logger.Debug("request validation failed", slog.Int("fields", len(validationErrors)))
	return apperrors.NewValidationErrors(validationErrors)
}

func formatValidationError(err validator.FieldError) string {
	field := err.Field()
	param := err.Param()

	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "isodate":
		return fmt.Sprintf("%s must be a date in YYYY-MM-DD format", field)
	case "dataset":
		return fmt.Sprintf("%s must be one of: correlation, stress, exposure", field)
	case "metric":
		return fmt.Sprintf("%s must be an exposure metric", field)
	case "gtefield":
		return fmt.Sprintf("%s must not be before %s", field, strings.ToLower(param))
	case "min":
		return fmt.Sprintf("%s must have at least %s entries", field, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, param)
	default:
		return fmt.Sprintf("%s failed %s validation", field, err.Tag())
	}
}

func isISODate(fl validator.FieldLevel) bool {
	_, err := time.Parse(DateLayout, fl.Field().String())
	return err == nil
}

func isDataset(fl validator.FieldLevel) bool {
	switch domain.Dataset(fl.Field().String()) {
	case domain.DatasetCorrelation, domain.DatasetStress, domain.DatasetExposure:
		return true
	}
	return false
}

func isMetric(fl validator.FieldLevel) bool {
	_, ok := domain.ParseMetric(fl.Field().String())
	return ok
}

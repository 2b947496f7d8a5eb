package middleware

import (
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/erp/returns/internal/domain/returns"
	"github.com/erp/returns/internal/interfaces/http/dto"
)

var setupOnce sync.Once

// SetupValidator names validation errors by their JSON field and registers
// the returns-specific tags: decision, condition, location_type, return_type
// and return_status.
func SetupValidator() {
	setupOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
			}
			return name
		})
		_ = v.RegisterValidation("decision", enumValidator(func(s string) bool {
			return returns.ItemDecision(s).IsValid()
		}))
		_ = v.RegisterValidation("condition", enumValidator(func(s string) bool {
			return returns.ItemCondition(s).IsValid()
		}))
		_ = v.RegisterValidation("location_type", enumValidator(func(s string) bool {
			return returns.LocationType(s).IsValid()
		}))
		_ = v.RegisterValidation("return_type", enumValidator(func(s string) bool {
			return returns.ReturnType(s).IsValid()
		}))
		_ = v.RegisterValidation("return_status", enumValidator(func(s string) bool {
			return returns.ReturnStatus(s).IsValid()
		}))
	})
}

// enumValidator checks a string-kinded field against valid
func enumValidator(valid func(string) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		field := fl.Field()
		if field.Kind() != reflect.String {
			return false
		}
		return valid(field.String())
	}
}

// FormatValidationErrors formats validation errors into a standard response
func FormatValidationErrors(err error, requestID string) dto.Response {
	var details []dto.ValidationDetail

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, e := range validationErrors {
			details = append(details, dto.ValidationDetail{
				Field:   e.Field(),
				Message: getValidationMessage(e),
			})
		}
	}

	return dto.NewValidationErrorResponse("Request validation failed", requestID, details)
}

// HandleValidationError answers a failed bind. Rule violations list their
// fields; anything else is reported as an unreadable body.
func HandleValidationError(c *gin.Context, err error) {
	requestID := c.GetString(ContextRequestID)

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, FormatValidationErrors(err, requestID))
		return
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeRequestTooLarge, "Request body exceeds maximum allowed size", requestID))
		return
	}
	c.JSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(
		dto.ErrCodeInvalidJSON, "Request body could not be decoded", requestID))
}

func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "min":
		if e.Kind() == reflect.String {
			return "Must be at least " + e.Param() + " characters"
		}
		if e.Kind() == reflect.Slice {
			return "Must contain at least " + e.Param() + " entries"
		}
		return "Must be at least " + e.Param()
	case "max":
		if e.Kind() == reflect.String {
			return "Must be at most " + e.Param() + " characters"
		}
		return "Must be at most " + e.Param()
	case "uuid":
		return "Invalid UUID format"
	case "oneof":
		return "Must be one of: " + e.Param()
	case "gte":
		return "Must be greater than or equal to " + e.Param()
	case "lte":
		return "Must be less than or equal to " + e.Param()
	case "gt":
		return "Must be greater than " + e.Param()
	case "decision":
		return "Must be one of: RETURN_TO_SHELF RETURN_WITH_DISCOUNT WRITE_OFF PENDING_SUPPLIER"
	case "condition":
		return "Must be one of: EXCELLENT GOOD SATISFACTORY UNSATISFACTORY"
	case "location_type":
		return "Must be one of: SHOP WAREHOUSE"
	case "return_type":
		return "Must be one of: CUSTOMER_RETURN DELIVERY_RETURN SUPPLIER_RETURN"
	case "return_status":
		return "Must be a known return status"
	default:
		return "Invalid value"
	}
}

package handlers

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/abrezinsky/chanceraffle/internal/auth"
	"github.com/abrezinsky/chanceraffle/internal/errors"
	"github.com/abrezinsky/chanceraffle/internal/logger"
	"github.com/abrezinsky/chanceraffle/internal/services"
)

// Error codes for standardized API error responses
const (
	ErrCodeBadRequest     = "BAD_REQUEST"
	ErrCodeUnauthorized   = "UNAUTHORIZED"
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeConflict       = "CONFLICT"
	ErrCodeValidation     = "VALIDATION_ERROR"
	ErrCodeUnavailable    = "SERVICE_UNAVAILABLE"
	ErrCodeInternalServer = "INTERNAL_SERVER_ERROR"
)

// APIError represents an error with an HTTP status code and error code
type APIError struct {
	Status    int               `json:"-"`
	Code      string            `json:"code"`
	Message   string            `json:"error"`
	Retryable bool              `json:"retryable"`
	Fields    map[string]string `json:"fields,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

// Common errors
var (
	ErrUnauthorized   = &APIError{Status: http.StatusUnauthorized, Code: ErrCodeUnauthorized, Message: "Unauthorized"}
	ErrInternalServer = &APIError{Status: http.StatusInternalServerError, Code: ErrCodeInternalServer, Message: "Internal server error"}
)

// BadRequest creates a 400 error with custom message
func BadRequest(message string) *APIError {
	return &APIError{Status: http.StatusBadRequest, Code: ErrCodeBadRequest, Message: message}
}

// NotFound creates a 404 error with custom message
func NotFound(message string) *APIError {
	return &APIError{Status: http.StatusNotFound, Code: ErrCodeNotFound, Message: message}
}

// raffleStatus maps raffle outcome codes to HTTP statuses. Codes not listed
// are conflicts with the current raffle state.
var raffleStatus = map[string]int{
	services.ErrCaptureFailed.Code:       http.StatusPaymentRequired,
	services.ErrAuthorizationFailed.Code: http.StatusPaymentRequired,
	services.ErrNotInitialized.Code:      http.StatusServiceUnavailable,
}

// ToAPIError converts service errors to appropriate API errors. Unexpected
// errors are logged and reported without detail.
func ToAPIError(log logger.Logger, err error) *APIError {
	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr
	}

	if re, ok := services.AsRaffleError(err); ok {
		status, ok := raffleStatus[re.Code]
		if !ok {
			status = http.StatusConflict
		}
		return &APIError{Status: status, Code: re.Code, Message: re.Message, Retryable: re.Retryable}
	}

	if stderrors.Is(err, auth.ErrInvalidCredentials) {
		return &APIError{Status: http.StatusUnauthorized, Code: ErrCodeUnauthorized, Message: "Invalid email or password"}
	}

	var appErr *errors.Error
	if stderrors.As(err, &appErr) {
		switch appErr.Kind {
		case errors.ErrNotFound:
			return NotFound(appErr.Message)
		case errors.ErrValidation, errors.ErrInvalidInput:
			return &APIError{Status: http.StatusBadRequest, Code: ErrCodeValidation, Message: appErr.Message}
		case errors.ErrConflict:
			return &APIError{Status: http.StatusConflict, Code: ErrCodeConflict, Message: appErr.Message}
		case errors.ErrUnavailable:
			log.Warn("Dependency unavailable", "error", err)
			return &APIError{Status: http.StatusServiceUnavailable, Code: ErrCodeUnavailable, Message: appErr.Message, Retryable: true}
		}
	}

	log.Error("Internal error", "error", err)
	return ErrInternalServer
}

// respondJSON writes a JSON response with the given status code
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondOK writes a 200 OK JSON response
func respondOK(w http.ResponseWriter, data interface{}) {
	respondJSON(w, http.StatusOK, data)
}

// respondCreated writes a 201 Created JSON response
func respondCreated(w http.ResponseWriter, data interface{}) {
	respondJSON(w, http.StatusCreated, data)
}

// respondError writes an error response
func (h *Handlers) respondError(w http.ResponseWriter, err error) {
	apiErr := ToAPIError(h.Log, err)
	respondJSON(w, apiErr.Status, apiErr)
}

var validate = newValidator()

// newValidator reports fields by their JSON names
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeJSON decodes the request body into target and runs its validate tags
func decodeJSON(r *http.Request, target interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := dec.Decode(target); err != nil {
		if err == io.EOF {
			return BadRequest("Request body is empty")
		}
		return BadRequest("Invalid JSON: " + err.Error())
	}
	if err := validate.Struct(target); err != nil {
		return validationError(err)
	}
	return nil
}

// validationError lists each failing field with the rule it broke
func validationError(err error) *APIError {
	var ve validator.ValidationErrors
	if !stderrors.As(err, &ve) {
		return BadRequest("Invalid input")
	}
	fields := make(map[string]string, len(ve))
	names := make([]string, 0, len(ve))
	for _, fe := range ve {
		name := fe.Field()
		fields[name] = fe.Tag()
		names = append(names, name)
	}
	return &APIError{
		Status:  http.StatusBadRequest,
		Code:    ErrCodeValidation,
		Message: "Invalid " + strings.Join(names, ", "),
		Fields:  fields,
	}
}

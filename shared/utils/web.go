package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	internal_errors "github.com/itchan-dev/itboard/shared/errors"
	"github.com/itchan-dev/itboard/shared/logger"
	"github.com/itchan-dev/itboard/shared/middleware/metrics"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report fields by their json names so clients can map errors back to inputs
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ErrorResponse is the JSON shape of every error returned by the API.
type ErrorResponse struct {
	Type    string `json:"type"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

func WriteErrorAndStatusCode(w http.ResponseWriter, err error) {
	code := internal_errors.StatusCode(err)
	name := "error"
	var rejection internal_errors.Rejection
	if errors.As(err, &rejection) {
		name = rejection.Name()
		metrics.CountRejection(name)
	}
	message := err.Error()
	if code == http.StatusInternalServerError {
		logger.Log.Error("internal error", "error", err)
		message = "Internal error"
	}
	var limited *internal_errors.RateLimitedError
	if errors.As(err, &limited) {
		w.Header().Set("Retry-After", fmt.Sprintf("%d", limited.Timeleft))
	}
	WriteJSONStatus(w, code, ErrorResponse{Type: "error", Status: name, Message: message})
}

func WriteJSON(w http.ResponseWriter, v any) {
	WriteJSONStatus(w, http.StatusOK, v)
}

func WriteJSONStatus(w http.ResponseWriter, code int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		logger.Log.Error("failed to encode response", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(body)
	w.Write([]byte("\n"))
}

// GetIP extracts the client IP from RemoteAddr.
// Proxy headers are not trusted; put the service behind middleware.RealIP if needed.
func GetIP(r *http.Request) (string, error) {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// RemoteAddr without a port
		ip = r.RemoteAddr
	}
	if net.ParseIP(ip) == nil {
		return "", &internal_errors.ErrorWithStatusCode{
			Message:    fmt.Sprintf("invalid IP address: %s", ip),
			StatusCode: http.StatusBadRequest,
		}
	}
	return ip, nil
}

// ErrBodyTooLarge is returned by Decode when the body exceeds the reader's limit.
var ErrBodyTooLarge = &internal_errors.ErrorWithStatusCode{Message: "request body too large", StatusCode: http.StatusRequestEntityTooLarge}

// Decode decodes a JSON body. Malformed JSON is reported as ParamsInvalidError;
// a body cut off by http.MaxBytesReader as ErrBodyTooLarge.
func Decode(r io.ReadCloser, body any) error {
	if err := json.NewDecoder(r).Decode(body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return ErrBodyTooLarge
		}
		logger.Log.Debug("invalid json body", "error", err)
		return &internal_errors.ParamsInvalidError{Fields: map[string][]string{"body": {"invalid json"}}}
	}
	return nil
}

// Validate runs struct validation and reports failures per json field name.
func Validate(body any) error {
	err := validate.Struct(body)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string][]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = append(fields[fe.Field()], describe(fe))
	}
	return &internal_errors.ParamsInvalidError{Fields: fields}
}

func DecodeValidate(r io.ReadCloser, body any) error {
	if err := Decode(r, body); err != nil {
		return err
	}
	return Validate(body)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	default:
		return "is invalid"
	}
}

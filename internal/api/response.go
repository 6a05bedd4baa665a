package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/riobizsols/assetledger/internal/store"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("error encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

// decodeValid decodes a request body and checks its validate tags. On
// failure it writes a 400 and returns false.
func decodeValid(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := decodeJSON(r, target); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := validate.Struct(target); err != nil {
		jsonError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fe.Field()+" is required")
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param()))
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s must have at least %s elements or characters", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid (%s)", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}

// statusFor maps an error category to an HTTP status.
func statusFor(err error) int {
	switch store.Category(store.Classify(err)) {
	case store.ErrValidation, store.ErrMissingActor:
		return http.StatusBadRequest
	case store.ErrAssetNotConfigured, store.ErrNotFound:
		return http.StatusNotFound
	case store.ErrDuplicateIdentifier, store.ErrConstraintViolation:
		return http.StatusConflict
	case store.ErrConnectivity:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// storeError writes err with the status of its category. Server-side
// failures are logged with the request id.
func storeError(w http.ResponseWriter, r *http.Request, action string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error("failed to "+action, "error", err, "request_id", RequestID(r.Context()))
	}
	jsonError(w, status, err.Error())
}

// orgParam returns the org_id query parameter, falling back to the caller's
// own organization.
func orgParam(r *http.Request) string {
	if org := r.URL.Query().Get("org_id"); org != "" {
		return org
	}
	if claims := GetClaims(r.Context()); claims != nil {
		return claims.OrgID
	}
	return ""
}

// emptyIfNil keeps list endpoints returning [] rather than null.
func emptyIfNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

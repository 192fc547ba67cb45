// Package httpx holds the JSON response helpers shared by every handler.
// Error bodies keep one shape across the API:
//
//	{"statusCode": 400, "message": "Tenant ID is missing in x-tenant-id header"}
package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// maxBody caps request bodies read by Decode.
const maxBody = 1 << 20

var validate = validator.New(validator.WithRequiredStructEnabled())

// ErrorBody is the JSON payload written by Error.
type ErrorBody struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
}

// JSON writes v with status.  Encoding errors are logged; headers are
// already sent by then.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("encode response", zap.Error(err))
	}
}

// Error writes an ErrorBody.
func Error(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, ErrorBody{StatusCode: status, Message: msg})
}

// Decode reads a JSON body into dst and validates its `validate` tags.
// The returned error is safe to show to clients.
func Decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("field %s failed %q validation", fe.Field(), fe.Tag())
		}
		return err
	}
	return nil
}

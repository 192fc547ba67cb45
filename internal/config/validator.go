// internal/config/validator.go
//
// Thin wrapper around go-playground/validator.
//
// Context
// -------
// `internal/config/loader.go` calls `validateStruct` immediately after it
// unmarshals and defaults the merged Koanf tree.  Any validation error
// aborts startup, so the binary never runs with malformed configuration.
//
// Notes
// -----
//   - Errors name the koanf key (`database.pool_size_per_tenant`) rather
//     than the Go field, since that is what operators edit.
//   - Oxford commas, two spaces after periods.

package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

//
// validator instance (package-level singleton)
//

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New(validator.WithRequiredStructEnabled())
	val.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("koanf"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return val
}

//
// public API
//

// validateStruct returns the first validation error, or nil on success.
func validateStruct(c *Config) error {
	err := v.Struct(c)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		key := strings.ToLower(strings.TrimPrefix(fe.Namespace(), "Config."))
		return fmt.Errorf("config: %s failed %q (value %v)", key, fe.Tag(), fe.Value())
	}
	return err
}

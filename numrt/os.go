package numrt

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
)

// ErrNotPointer is returned by SetConfigFromEnvVars when the target is not a pointer to a struct.
var ErrNotPointer = errors.New("config target must be a pointer to a struct")

// GetenvOrDefault returns the value of key, or defaultValue when the variable
// is missing, empty or whitespace-only.
func GetenvOrDefault(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}

	return value
}

// GetenvBoolOrDefault parses key as a bool, returning defaultValue when missing or invalid.
func GetenvBoolOrDefault(key string, defaultValue bool) bool {
	parsed, err := strconv.ParseBool(GetenvOrDefault(key, ""))
	if err != nil {
		return defaultValue
	}

	return parsed
}

// GetenvIntOrDefault parses key as an int64, returning defaultValue when missing or invalid.
func GetenvIntOrDefault(key string, defaultValue int64) int64 {
	parsed, err := strconv.ParseInt(GetenvOrDefault(key, ""), 10, 64)
	if err != nil {
		return defaultValue
	}

	return parsed
}

// SetConfigFromEnvVars fills the `env`-tagged string, bool and integer fields of
// the struct pointed to by target. Missing variables leave the field untouched.
func SetConfigFromEnvVars(target any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return ErrNotPointer
	}

	elem := rv.Elem()
	typ := elem.Type()

	for i := 0; i < typ.NumField(); i++ {
		key, ok := typ.Field(i).Tag.Lookup("env")
		if !ok || key == "" {
			continue
		}

		raw := GetenvOrDefault(key, "")
		if raw == "" {
			continue
		}

		field := elem.Field(i)
		if !field.CanSet() {
			continue
		}

		switch field.Kind() {
		case reflect.String:
			field.SetString(raw)
		case reflect.Bool:
			field.SetBool(GetenvBoolOrDefault(key, field.Bool()))
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			parsed, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return fmt.Errorf("env %s: %w", key, err)
			}

			field.SetInt(parsed)
		default:
			return fmt.Errorf("env %s: unsupported field kind %s", key, field.Kind())
		}
	}

	return nil
}

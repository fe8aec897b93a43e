package assert

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Field is one named auxiliary value attached to a check.
type Field struct {
	name        string
	value       any
	lazy        func() any
	explanation bool
}

// Value attaches an already evaluated value. It is rendered only if the check fails.
func Value(name string, v any) Field {
	return Field{name: name, value: v}
}

// Lazy attaches a value that is computed only if the check fails.
func Lazy(name string, fn func() any) Field {
	return Field{name: name, lazy: fn}
}

// Explain attaches the free-text explanation printed at the end of the report.
func Explain(text string) Field {
	return Field{value: text, explanation: true}
}

// Name returns the field name.
func (f Field) Name() string {
	return f.name
}

func (f Field) resolve() any {
	if f.lazy != nil {
		return f.lazy()
	}

	return f.value
}

// RenderedField is a field after rendering, as stored in a Report.
type RenderedField struct {
	Name  string
	Value string
}

// render formats v for a report. Floats use scientific notation with the given
// number of digits after the point.
func render(v any, precision int) string {
	switch val := v.(type) {
	case nil:
		return "<nil>"
	case error:
		return val.Error()
	case fmt.Stringer:
		return val.String()
	case string:
		return val
	}

	rv := reflect.ValueOf(v)

	switch rv.Kind() {
	case reflect.Float32:
		return strconv.FormatFloat(rv.Float(), 'e', precision, 32)
	case reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'e', precision, 64)
	case reflect.Complex64:
		return strconv.FormatComplex(rv.Complex(), 'e', precision, 64)
	case reflect.Complex128:
		return strconv.FormatComplex(rv.Complex(), 'e', precision, 128)
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return "[]"
		}

		parts := make([]string, rv.Len())
		for i := range parts {
			parts[i] = render(rv.Index(i).Interface(), precision)
		}

		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return fmt.Sprintf("%v", v)
	}
}

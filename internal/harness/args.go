package harness

import (
	"fmt"

	"github.com/roach88/pulsegrid/internal/cell"
)

// argError is a malformed step argument.
type argError struct {
	msg string
}

func (e *argError) Error() string { return e.msg }

// argReader reads typed step args, keeping the first problem in err.
type argReader struct {
	m   map[string]any
	err error
}

func args(m map[string]any) *argReader {
	return &argReader{m: m}
}

func (a *argReader) fail(format string, v ...any) {
	if a.err == nil {
		a.err = &argError{msg: fmt.Sprintf(format, v...)}
	}
}

func (a *argReader) text(key string) string {
	switch v := a.m[key].(type) {
	case string:
		return v
	case int:
		return fmt.Sprint(v)
	case nil:
		a.fail("arg %q is missing", key)
	default:
		a.fail("arg %q must be a string, got %T", key, v)
	}
	return ""
}

func (a *argReader) integer(key string) int {
	v, ok := a.m[key].(int)
	if !ok {
		a.fail("arg %q must be an integer, got %T", key, a.m[key])
	}
	return v
}

func (a *argReader) value(key string) cell.Value {
	v, err := cell.FromAny(a.m[key])
	if err != nil {
		a.fail("arg %q: %v", key, err)
		return cell.Empty{}
	}
	return v
}

func (a *argReader) values(key string) cell.Values {
	m, ok := a.m[key].(map[string]any)
	if !ok {
		a.fail("arg %q must be a mapping, got %T", key, a.m[key])
		return nil
	}
	vs, err := cell.ValuesFromMap(m)
	if err != nil {
		a.fail("arg %q: %v", key, err)
	}
	return vs
}

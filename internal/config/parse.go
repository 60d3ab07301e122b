package config

import (
	"fmt"
	"math"
	"time"

	"github.com/xvzc/printbridge/internal/ptr"
)

type integer interface {
	~int | ~int64 | ~uint8 | ~uint16 | ~uint32
}

// findFrom decodes m[key] with parser. A missing key yields nil. Once *err
// is set, later lookups are skipped so the first failure is reported.
func findFrom[T any](
	data map[string]any,
	key string,
	parser func(any) (T, error),
	err *error,
) *T {
	if err != nil && *err != nil {
		return nil
	}

	anyVal, ok := data[key]
	if !ok {
		return nil
	}

	val, parseErr := parser(anyVal)
	if parseErr != nil {
		*err = fmt.Errorf("field %q: %w", key, parseErr)
		return nil
	}

	return ptr.FromValue(val)
}

// findStructFrom decodes the table at m[key] into a new T.
func findStructFrom[T any, PT interface {
	*T
	UnmarshalTOML(any) error
}](m map[string]any, key string, errPtr *error) *T {
	if errPtr != nil && *errPtr != nil {
		return nil
	}

	val, ok := m[key]
	if !ok {
		return nil
	}

	var item T
	if err := PT(&item).UnmarshalTOML(val); err != nil {
		*errPtr = fmt.Errorf("failed to decode '%s': %w", key, err)
		return nil
	}

	return &item
}

func isOk[T any](p *T, err error) bool {
	return p != nil && err == nil
}

func parseBoolFn() func(any) (bool, error) {
	return func(v any) (bool, error) {
		b, ok := v.(bool)
		if !ok {
			return false, fmt.Errorf("expected bool, got %T", v)
		}

		return b, nil
	}
}

func parseStringFn(check func(string) error) func(any) (string, error) {
	return func(v any) (string, error) {
		s, ok := v.(string)
		if !ok {
			return "", fmt.Errorf("expected string, got %T", v)
		}

		if check != nil {
			if err := check(s); err != nil {
				return "", err
			}
		}

		return s, nil
	}
}

// parseIntFn accepts the integer shapes produced by the TOML (int64) and
// YAML (int) decoders, and whole floats.
func parseIntFn[T integer](check func(int) error) func(any) (T, error) {
	return func(v any) (T, error) {
		var n int64
		switch x := v.(type) {
		case int:
			n = int64(x)
		case int64:
			n = x
		case uint64:
			if x > math.MaxInt64 {
				return 0, fmt.Errorf("value %d out of range", x)
			}
			n = int64(x)
		case float64:
			if x != math.Trunc(x) || x > math.MaxInt64 || x < math.MinInt64 {
				return 0, fmt.Errorf("expected integer, got %v", x)
			}
			n = int64(x)
		default:
			return 0, fmt.Errorf("expected integer, got %T", v)
		}

		if n > math.MaxInt32 || n < math.MinInt32 {
			return 0, fmt.Errorf("value %d out of range", n)
		}

		if check != nil {
			if err := check(int(n)); err != nil {
				return 0, err
			}
		}

		return T(n), nil
	}
}

// parseMillisFn reads an integer number of milliseconds.
func parseMillisFn(check func(int) error) func(any) (time.Duration, error) {
	parse := parseIntFn[int64](check)

	return func(v any) (time.Duration, error) {
		n, err := parse(v)
		if err != nil {
			return 0, err
		}

		return time.Duration(n) * time.Millisecond, nil
	}
}

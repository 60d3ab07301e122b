package bridge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// printBody is the JSON document POSTed to /print.
type printBody struct {
	IP        string  `json:"ip"`
	Port      flexInt `json:"port"`
	Data      string  `json:"data"`
	TimeoutMs flexInt `json:"timeoutMs"`
}

// flexInt accepts a JSON number, a numeric string or null. Values that
// are not whole numbers are kept as invalid instead of failing the parse,
// so the field's own validation reports them.
type flexInt struct {
	n       int64
	invalid bool
}

func (f *flexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = flexInt{}
		return nil
	}

	var raw string
	switch b[0] {
	case '"':
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			*f = flexInt{}
			return nil
		}
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		raw = string(b)
	default:
		return fmt.Errorf("expected number or numeric string, got %s", b)
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsInf(v, 0) || v != math.Trunc(v) ||
		v > math.MaxInt32 || v < math.MinInt32 {
		*f = flexInt{invalid: true}
		return nil
	}

	*f = flexInt{n: int64(v)}
	return nil
}

// port maps an invalid port to a value that fails range validation.
func (f flexInt) port() int {
	if f.invalid {
		return -1
	}

	return int(f.n)
}

// timeoutMs maps an invalid timeout to zero, which selects the default.
func (f flexInt) timeoutMs() int64 {
	if f.invalid {
		return 0
	}

	return f.n
}

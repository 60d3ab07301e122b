package printjob

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// NormalizeAddress reports whether host is an IPv4 literal made of exactly
// four dot-separated decimal groups in [0,255], and returns its canonical
// form with leading zeros dropped ("010.0.0.1" -> "10.0.0.1").
func NormalizeAddress(host string) (string, bool) {
	groups := strings.Split(host, ".")
	if len(groups) != 4 {
		return "", false
	}

	canonical := make([]string, 0, 4)
	for _, g := range groups {
		if g == "" || len(g) > 3 {
			return "", false
		}

		for _, r := range g {
			if r < '0' || r > '9' {
				return "", false
			}
		}

		n, err := strconv.ParseUint(g, 10, 8)
		if err != nil {
			return "", false
		}

		canonical = append(canonical, strconv.FormatUint(n, 10))
	}

	return strings.Join(canonical, "."), true
}

// ValidateAddress accepts IPv4 literals only; hostnames are rejected.
func ValidateAddress(host string) bool {
	_, ok := NormalizeAddress(host)
	return ok
}

func ValidatePort(port int) bool {
	return port >= 1 && port <= 65535
}

var payloadEncodings = []*base64.Encoding{
	base64.StdEncoding,
	base64.RawStdEncoding,
	base64.URLEncoding,
	base64.RawURLEncoding,
}

// DecodePayload turns base64 text into the raw bytes sent to the printer.
// Whitespace is ignored. Padded, unpadded and URL-safe alphabets are
// accepted. Absent, malformed or zero-length input is a KindValidation error.
func DecodePayload(encoded string) ([]byte, error) {
	compact := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, encoded)

	if compact == "" {
		return nil, &Error{Kind: KindValidation, Detail: "Empty data", Err: ErrEmptyPayload}
	}

	var errs []error
	for _, enc := range payloadEncodings {
		b, err := enc.DecodeString(compact)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		if len(b) == 0 {
			return nil, &Error{Kind: KindValidation, Detail: "Empty data", Err: ErrEmptyPayload}
		}

		return b, nil
	}

	// The standard alphabet error is the most useful to a caller.
	return nil, &Error{
		Kind:   KindValidation,
		Detail: fmt.Sprintf("Invalid data: %v", errs[0]),
		Err:    errors.Join(ErrInvalidPayload, errs[0]),
	}
}

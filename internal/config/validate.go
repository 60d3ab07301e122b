package config

import (
	"fmt"
	"math"
	"net"
	"slices"
	"strconv"
	"strings"
)

func checkLogLevel(v string) error {
	if !slices.Contains(availableLogLevels, strings.ToLower(v)) {
		return fmt.Errorf("invalid log level %q (valid: %s)", v, strings.Join(availableLogLevels, ", "))
	}

	return nil
}

func checkLogFormat(v string) error {
	if !slices.Contains(availableLogFormats, strings.ToLower(v)) {
		return fmt.Errorf("invalid log format %q (valid: %s)", v, strings.Join(availableLogFormats, ", "))
	}

	return nil
}

// checkHostPort requires an IP literal (or empty host) and a port.
func checkHostPort(v string) error {
	host, port, err := net.SplitHostPort(v)
	if err != nil {
		return fmt.Errorf("wrong format %q: %w", v, err)
	}

	if host != "" && net.ParseIP(host) == nil {
		return fmt.Errorf("host of %q must be an ip address", v)
	}

	n, err := strconv.Atoi(port)
	if err != nil || n < 0 || n > math.MaxUint16 {
		return fmt.Errorf("port of %q out of range[0-%d]", v, math.MaxUint16)
	}

	return nil
}

func checkOptionalHostPort(v string) error {
	if v == "" {
		return nil
	}

	return checkHostPort(v)
}

func checkPort(v int) error {
	if v < 1 || v > math.MaxUint16 {
		return fmt.Errorf("out of range[1-%d]", math.MaxUint16)
	}

	return nil
}

func checkNonNegative(v int) error {
	if v < 0 {
		return fmt.Errorf("must not be negative")
	}

	return nil
}

func checkPositive(v int) error {
	if v <= 0 {
		return fmt.Errorf("must be greater than 0")
	}

	return nil
}

func checkHistory(v int) error {
	if v < 1 || v > 10000 {
		return fmt.Errorf("out of range[1-10000]")
	}

	return nil
}

// checkInstance enforces a single DNS-SD instance label.
func checkInstance(v string) error {
	if v == "" {
		return fmt.Errorf("must not be empty")
	}

	if len(v) > 63 {
		return fmt.Errorf("longer than 63 bytes")
	}

	if strings.ContainsAny(v, ".\\") {
		return fmt.Errorf("must not contain '.' or '\\'")
	}

	return nil
}

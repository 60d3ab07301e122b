package ptr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClone(t *testing.T) {
	port := uint16(9100)

	tcs := []struct {
		name   string
		input  *uint16
		assert func(t *testing.T, output *uint16)
	}{
		{
			name:  "nil stays nil",
			input: nil,
			assert: func(t *testing.T, output *uint16) {
				assert.Nil(t, output)
			},
		},
		{
			name:  "copy is detached",
			input: &port,
			assert: func(t *testing.T, output *uint16) {
				assert.Equal(t, port, *output)
				assert.NotSame(t, &port, output)
			},
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			tc.assert(t, Clone(tc.input))
		})
	}
}

func TestCloneOr(t *testing.T) {
	override := "json"
	fallback := "console"

	tcs := []struct {
		name     string
		input    *string
		fallback *string
		expect   *string
	}{
		{name: "override wins", input: &override, fallback: &fallback, expect: &override},
		{name: "fallback used", input: nil, fallback: &fallback, expect: &fallback},
		{name: "both unset", input: nil, fallback: nil, expect: nil},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			output := CloneOr(tc.input, tc.fallback)
			if tc.expect == nil {
				assert.Nil(t, output)
				return
			}

			assert.Equal(t, *tc.expect, *output)
			assert.NotSame(t, tc.expect, output)
		})
	}
}

func TestValueOr(t *testing.T) {
	silent := true

	assert.True(t, ValueOr(&silent, false))
	assert.False(t, ValueOr[bool](nil, false))
	assert.Equal(t, 2000, ValueOr(FromValue(2000), 0))
}

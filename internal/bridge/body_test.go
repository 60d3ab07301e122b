package bridge

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlexInt_UnmarshalJSON(t *testing.T) {
	tcs := []struct {
		name    string
		input   string
		wantErr bool
		want    flexInt
	}{
		{name: "number", input: `9100`, want: flexInt{n: 9100}},
		{name: "numeric string", input: `" 9100 "`, want: flexInt{n: 9100}},
		{name: "exponent", input: `1e3`, want: flexInt{n: 1000}},
		{name: "negative", input: `-5`, want: flexInt{n: -5}},
		{name: "null", input: `null`, want: flexInt{}},
		{name: "empty string", input: `""`, want: flexInt{}},
		{name: "fraction", input: `9100.5`, want: flexInt{invalid: true}},
		{name: "text", input: `"abc"`, want: flexInt{invalid: true}},
		{name: "huge", input: `1e20`, want: flexInt{invalid: true}},
		{name: "bool", input: `true`, wantErr: true},
		{name: "object", input: `{}`, wantErr: true},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			var f flexInt
			err := json.Unmarshal([]byte(tc.input), &f)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}

			assert.NoError(t, err)
			assert.Equal(t, tc.want, f)
		})
	}
}

func TestFlexInt_Accessors(t *testing.T) {
	assert.Equal(t, -1, flexInt{invalid: true}.port())
	assert.Equal(t, 9100, flexInt{n: 9100}.port())
	assert.Equal(t, int64(0), flexInt{invalid: true}.timeoutMs())
	assert.Equal(t, int64(250), flexInt{n: 250}.timeoutMs())
}

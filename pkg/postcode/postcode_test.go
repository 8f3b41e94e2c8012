package postcode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{name: "already canonical", input: "SW1A 1AA", expected: "SW1A 1AA"},
		{name: "no space", input: "SW1A1AA", expected: "SW1A 1AA"},
		{name: "lowercase", input: "sw1a 1aa", expected: "SW1A 1AA"},
		{name: "lowercase no space", input: "ec1a1bb", expected: "EC1A 1BB"},
		{name: "surrounding whitespace", input: "  M1 1AE  ", expected: "M1 1AE"},
		{name: "double internal space", input: "B33  8TH", expected: "B33 8TH"},
		{name: "single letter area", input: "W1A 0AX", expected: "W1A 0AX"},
		{name: "short outward", input: "M1 1AE", expected: "M1 1AE"},
		{name: "long outward", input: "CR2 6XH", expected: "CR2 6XH"},
		{name: "empty", input: "", wantErr: true},
		{name: "whitespace only", input: "   ", wantErr: true},
		{name: "too few characters", input: "SW1", wantErr: true},
		{name: "digits only", input: "12345", wantErr: true},
		{name: "letters only inward", input: "SW1A AAA", wantErr: true},
		{name: "three letter area", input: "ABC1 1AA", wantErr: true},
		{name: "trailing garbage", input: "SW1A 1AA EXTRA", wantErr: true},
		{name: "punctuation", input: "SW1A-1AA", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"SW1A 1AA", "ec1a1bb", " m1 1ae "}

	for _, input := range inputs {
		first, err := Normalize(input)
		require.NoError(t, err)

		second, err := Normalize(first)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	}
}

func TestNormalizeAgreesAcrossForms(t *testing.T) {
	spaced, err := Normalize("EC1A 1BB")
	require.NoError(t, err)

	unspaced, err := Normalize("EC1A1BB")
	require.NoError(t, err)

	assert.Equal(t, spaced, unspaced)
}

func TestNoSpace(t *testing.T) {
	assert.Equal(t, "SW1A1AA", NoSpace("SW1A 1AA"))
	assert.Equal(t, "M11AE", NoSpace("M1 1AE"))
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("SW1A 1AA"))
	assert.True(t, Valid("sw1a1aa"))
	assert.False(t, Valid("not a postcode"))
	assert.False(t, Valid(""))
}

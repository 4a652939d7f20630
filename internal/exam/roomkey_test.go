package exam

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeRoomKey(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want string
	}{
		{name: "plain string", raw: "roomA", want: "roomA"},
		{name: "string with whitespace", raw: "  roomA  ", want: "roomA"},
		{name: "numeric string", raw: "42", want: "42"},
		{name: "zero padded numeric string", raw: "042", want: "42"},
		{name: "int", raw: 42, want: "42"},
		{name: "int64", raw: int64(42), want: "42"},
		{name: "int32", raw: int32(7), want: "7"},
		{name: "json number", raw: json.Number("42"), want: "42"},
		{name: "float from json decoding", raw: float64(42), want: "42"},
		{name: "fractional float keeps fraction", raw: 4.5, want: "4.5"},
		{name: "mixed alphanumeric untouched", raw: "exam-42b", want: "exam-42b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeRoomKey(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeRoomKeyEquivalence(t *testing.T) {
	// All spellings of the same numeric id must address one room.
	forms := []any{42, int64(42), "42", " 42 ", "042", json.Number("42"), float64(42)}
	for _, form := range forms {
		got, err := NormalizeRoomKey(form)
		require.NoError(t, err)
		assert.Equal(t, "42", got, "form %#v", form)
	}
}

func TestNormalizeRoomKeyRejects(t *testing.T) {
	tests := []struct {
		name string
		raw  any
	}{
		{name: "nil", raw: nil},
		{name: "empty string", raw: ""},
		{name: "whitespace only", raw: "   "},
		{name: "unsupported type", raw: true},
		{name: "unsupported struct", raw: struct{ X int }{1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NormalizeRoomKey(tt.raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMissingRoomID)
		})
	}
}

package contracts

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeEkpnr(t *testing.T) {
	tests := []struct {
		in   string
		want Ekpnr
	}{
		{"5000000001", "5000000001"},
		{"123", "0000000123"},
		{" 42 ", "0000000042"},
		{"5000000001.0", "5000000001"},
		{"0000000000", ""},
		{"0", ""},
		{"   ", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeEkpnr(tt.in), "NormalizeEkpnr(%q)", tt.in)
	}
}

func TestParseAbrnr(t *testing.T) {
	key, err := ParseAbrnr("50000000010102")
	require.NoError(t, err)
	assert.Equal(t, AccountKey{Ekpnr: "5000000001", Verfa: "01", Teiln: "02"}, key)
	assert.Equal(t, Abrnr("50000000010102"), key.Abrnr())
	require.NoError(t, key.Validate())

	_, err = ParseAbrnr("500000000101")
	assert.Error(t, err)
}

func TestAbrnrParts(t *testing.T) {
	a := Abrnr("50000000016201")
	assert.Equal(t, Ekpnr("5000000001"), a.Ekpnr())
	assert.Equal(t, Verfa("62"), a.Verfa())
	assert.Equal(t, Verfa(""), Abrnr("123").Verfa())
}

func TestErrors(t *testing.T) {
	cause := errors.New("connection reset")
	var err error = &QueryExecutionError{Query: "select 1", Err: cause}
	assert.ErrorIs(t, err, cause)

	wrapped := fmt.Errorf("s0: %w", &DatasetNotFoundError{Name: "kontrakt", Path: "/in"})
	var nf *DatasetNotFoundError
	require.True(t, errors.As(wrapped, &nf))
	assert.Equal(t, "kontrakt", nf.Name)

	keys := make([]string, 12)
	for i := range keys {
		keys[i] = fmt.Sprintf("k%d", i)
	}
	m := &MalformedInputError{Stage: "s2_tenure", Reason: "abrnr mismatch", Keys: keys}
	assert.Contains(t, m.Error(), "(+2 more)")
	assert.Len(t, m.Keys, 12)
}

func TestIsCalculated(t *testing.T) {
	assert.True(t, IsCalculated(DatasetMapping))
	assert.False(t, IsCalculated(InputKontrakt))
}

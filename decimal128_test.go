package bson

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecimal128StringRoundTrip(t *testing.T) {
	cases := []string{
		"0",
		"1",
		"-1",
		"1.5",
		"-0.001",
		"12345.6789",
		"0.000001",
		"1E+3",
		"1.234E-8",
		"9999999999999999999999999999999999",
		"NaN",
		"Infinity",
		"-Infinity",
	}
	for _, s := range cases {
		t.Run(s, func(t *testing.T) {
			d, err := ParseDecimal128(s)
			require.NoError(t, err)
			assert.Equal(t, s, d.String())
		})
	}
}

func TestDecimal128ParseNormalizes(t *testing.T) {
	cases := map[string]string{
		"+1":      "1",
		"007":     "7",
		"1e2":     "1E+2",
		"10E-1":   "1.0",
		"inf":     "Infinity",
		"-inf":    "-Infinity",
		"0E+9999": "0E+6111",
	}
	for in, want := range cases {
		t.Run(in, func(t *testing.T) {
			d, err := ParseDecimal128(in)
			require.NoError(t, err)
			assert.Equal(t, want, d.String())
		})
	}
}

func TestDecimal128ParseErrors(t *testing.T) {
	cases := []string{
		"",
		"-",
		"abc",
		"1.2.3",
		"1E",
		"1E2x",
		"99999999999999999999999999999999999", // 35 digits
		"1E+6200",
	}
	for _, s := range cases {
		t.Run(s, func(t *testing.T) {
			_, err := ParseDecimal128(s)
			require.Error(t, err)
		})
	}
}

func TestDecimal128Bytes(t *testing.T) {
	d, err := ParseDecimal128("-42.7")
	require.NoError(t, err)
	got := Decimal128FromBytes(d.Bytes())
	assert.Equal(t, d, got)
	assert.Equal(t, "-42.7", got.String())
}

func TestDecimal128Classifiers(t *testing.T) {
	nan, err := ParseDecimal128("NaN")
	require.NoError(t, err)
	assert.True(t, nan.IsNaN())
	assert.Zero(t, nan.IsInf())

	pinf, err := ParseDecimal128("Infinity")
	require.NoError(t, err)
	assert.Equal(t, 1, pinf.IsInf())
	ninf, err := ParseDecimal128("-Infinity")
	require.NoError(t, err)
	assert.Equal(t, -1, ninf.IsInf())

	one, err := ParseDecimal128("1")
	require.NoError(t, err)
	assert.False(t, one.IsNaN())
	assert.Zero(t, one.IsInf())
}

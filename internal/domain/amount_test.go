package domain

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUnits(t *testing.T) {
	v, err := ParseUnits("1.5")
	require.NoError(t, err)
	assert.Equal(t, "1500000000000000000", v.Dec())

	v, err = ParseUnits("1000")
	require.NoError(t, err)
	assert.Equal(t, "1000", FormatUnits(v))

	_, err = ParseUnits("-1")
	assert.Error(t, err)

	_, err = ParseUnits("0.0000000000000000001")
	assert.Error(t, err)

	_, err = ParseUnits("abc")
	assert.Error(t, err)
}

func TestParseUnitsOverflow(t *testing.T) {
	_, err := ParseUnits("1" + fmt.Sprintf("%060d", 0))
	assert.ErrorIs(t, err, ErrOverflow)

	// largest uint256 in base units still parses
	v, err := ParseUnits("115792089237316195423570985008687907853269984665640564039457.584007913129639935")
	require.NoError(t, err)
	assert.Equal(t, new(uint256.Int).SetAllOne().Dec(), v.Dec())
}

func TestParseUnitsRejectsHugeExponentsQuickly(t *testing.T) {
	cases := []struct {
		in       string
		overflow bool
	}{
		{"1e2000000000", true},
		{"1e60", true},
		{"1e-2000000000", false},
		{"12345e-2000000000", false},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			start := time.Now()
			_, err := ParseUnits(tc.in)
			require.Error(t, err)
			if tc.overflow {
				assert.ErrorIs(t, err, ErrOverflow)
			}
			assert.Less(t, time.Since(start), 50*time.Millisecond)
		})
	}

	v, err := ParseUnits("0e-2000000000")
	require.NoError(t, err)
	assert.True(t, v.IsZero())

	_, err = ParseUnits("1" + strings.Repeat("0", 200))
	assert.Error(t, err)
}

func TestFormatUnits(t *testing.T) {
	assert.Equal(t, "0", FormatUnits(uint256.Int{}))
	assert.Equal(t, "0.25", FormatUnits(MustUnits("0.25")))

	v, err := ParseBaseUnits("42")
	require.NoError(t, err)
	assert.Equal(t, uint64(42), v.Uint64())
}

func TestParseAddressAndHash(t *testing.T) {
	a, err := ParseAddress("0x000000000000000000000000000000000000a9e7")
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0xa9e7"), a)

	for _, bad := range []string{"0xa9e7", "not-an-address", ""} {
		_, err := ParseAddress(bad)
		assert.ErrorIs(t, err, ErrMalformedAddress, bad)
	}

	h, err := ParseHash("0x" + strings.Repeat("ab", 32))
	require.NoError(t, err)
	assert.Equal(t, byte(0xab), h[31])

	for _, bad := range []string{"0x1234", strings.Repeat("ab", 32), "0x" + strings.Repeat("zz", 32), "0x" + strings.Repeat("ab", 33)} {
		_, err := ParseHash(bad)
		assert.ErrorIs(t, err, ErrMalformedHash, bad)
	}
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeOK, CodeOf(nil))
	assert.Equal(t, CodeTradeTooBig, CodeOf(fmt.Errorf("swap: %w", ErrTradeTooBig)))
	assert.Equal(t, CodeInternal, CodeOf(fmt.Errorf("boom")))
	assert.True(t, IsClientError(ErrNotOwner))
	assert.False(t, IsClientError(ErrExecutionFailed))
}

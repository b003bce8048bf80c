package domain

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

var (
	ErrMalformedAddress = errors.New("malformed address")
	ErrMalformedHash    = errors.New("malformed hash")
)

// ParseAddress accepts a 20-byte hex address, with or without 0x.
// Short or non-hex strings are rejected instead of being left-padded.
func ParseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w: %q", ErrMalformedAddress, s)
	}
	return common.HexToAddress(s), nil
}

// ParseHash accepts exactly 32 bytes of 0x-prefixed hex (route ids, identity bindings).
func ParseHash(s string) (common.Hash, error) {
	b, err := hexutil.Decode(s)
	if err != nil || len(b) != common.HashLength {
		return common.Hash{}, fmt.Errorf("%w: %q", ErrMalformedHash, s)
	}
	return common.BytesToHash(b), nil
}

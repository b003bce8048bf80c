// Package identity computes ENS-style name hashes used to bind agents to a name.
// It never resolves names over the network.
package identity

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Namehash implements the ENS namehash: node = keccak256(node || keccak256(label)),
// folding labels from right to left, starting from the zero node.
func Namehash(name string) common.Hash {
	var node common.Hash
	name = Normalize(name)
	if name == "" {
		return node
	}

	labels := strings.Split(name, ".")
	for i := len(labels) - 1; i >= 0; i-- {
		labelHash := crypto.Keccak256Hash([]byte(labels[i]))
		node = crypto.Keccak256Hash(node.Bytes(), labelHash.Bytes())
	}
	return node
}

// Normalize lowercases and trims the name. Full UTS-46 processing is out of scope.
func Normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Matches reports whether binding is the namehash of name. A zero binding never matches.
func Matches(binding common.Hash, name string) bool {
	if binding == (common.Hash{}) {
		return false
	}
	return Namehash(name) == binding
}

package domain

import (
	"bytes"
	"sort"

	"github.com/ethereum/go-ethereum/common"
)

// Route is a whitelisted swap path. Asset0 always sorts before Asset1.
type Route struct {
	ID      common.Hash    `json:"id"`
	Asset0  common.Address `json:"asset0"`
	Asset1  common.Address `json:"asset1"`
	Fee     uint32         `json:"fee"`
	Pool    common.Address `json:"pool"`
	Enabled bool           `json:"enabled"`
	Default bool           `json:"default"`
}

// MaxFee is the upper bound of a uint24 fee tier.
const MaxFee = 1<<24 - 1

// RouteSet is an immutable set of route ids. The zero value is the empty set.
type RouteSet struct {
	ids map[common.Hash]struct{}
}

// NewRouteSet copies ids into a fresh set; later changes to the slice are not observed.
func NewRouteSet(ids ...common.Hash) RouteSet {
	m := make(map[common.Hash]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return RouteSet{ids: m}
}

func (s RouteSet) Contains(id common.Hash) bool {
	_, ok := s.ids[id]
	return ok
}

func (s RouteSet) Len() int { return len(s.ids) }

// IDs returns a sorted copy of the members.
func (s RouteSet) IDs() []common.Hash {
	out := make([]common.Hash, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	SortHashes(out)
	return out
}

// SortHashes orders hashes byte-wise.
func SortHashes(hs []common.Hash) {
	sort.Slice(hs, func(i, j int) bool { return bytes.Compare(hs[i][:], hs[j][:]) < 0 })
}

// SortAddresses orders addresses byte-wise.
func SortAddresses(as []common.Address) {
	sort.Slice(as, func(i, j int) bool { return bytes.Compare(as[i][:], as[j][:]) < 0 })
}

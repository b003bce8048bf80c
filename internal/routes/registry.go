// Package routes holds the owner-whitelisted swap routes.
package routes

import (
	"bytes"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/xela07ax/agentvault/internal/domain"
)

// Canonical orders two assets byte-wise.
func Canonical(a, b common.Address) (common.Address, common.Address) {
	if bytes.Compare(a[:], b[:]) > 0 {
		return b, a
	}
	return a, b
}

// ComputeID is keccak256(abi.encode(asset0, asset1, fee, pool)) over canonically ordered assets.
func ComputeID(assetA, assetB common.Address, fee uint32, pool common.Address) common.Hash {
	asset0, asset1 := Canonical(assetA, assetB)

	buf := make([]byte, 0, 4*32)
	buf = append(buf, common.LeftPadBytes(asset0.Bytes(), 32)...)
	buf = append(buf, common.LeftPadBytes(asset1.Bytes(), 32)...)
	buf = append(buf, common.LeftPadBytes(new(big.Int).SetUint64(uint64(fee)).Bytes(), 32)...)
	buf = append(buf, common.LeftPadBytes(pool.Bytes(), 32)...)
	return crypto.Keccak256Hash(buf)
}

type Registry struct {
	routes     map[common.Hash]domain.Route
	defaultID  common.Hash
	hasDefault bool
}

func NewRegistry() *Registry {
	return &Registry{routes: make(map[common.Hash]domain.Route)}
}

// Register adds a route, enabled. Registering an existing route returns its id unchanged.
func (r *Registry) Register(assetA, assetB common.Address, fee uint32, pool common.Address) (common.Hash, error) {
	zero := common.Address{}
	if assetA == zero || assetB == zero || pool == zero {
		return common.Hash{}, domain.ErrAddressZero
	}
	if assetA == assetB || fee > domain.MaxFee {
		return common.Hash{}, domain.ErrInvalidRoute
	}

	id := ComputeID(assetA, assetB, fee, pool)
	if _, ok := r.routes[id]; ok {
		return id, nil
	}

	asset0, asset1 := Canonical(assetA, assetB)
	r.routes[id] = domain.Route{
		ID:      id,
		Asset0:  asset0,
		Asset1:  asset1,
		Fee:     fee,
		Pool:    pool,
		Enabled: true,
	}
	return id, nil
}

// SetDefault registers the route if needed and marks it as the default one.
func (r *Registry) SetDefault(assetA, assetB common.Address, fee uint32, pool common.Address) (common.Hash, error) {
	id, err := r.Register(assetA, assetB, fee, pool)
	if err != nil {
		return common.Hash{}, err
	}
	r.defaultID = id
	r.hasDefault = true
	return id, nil
}

func (r *Registry) Lookup(id common.Hash) (domain.Route, error) {
	rt, ok := r.routes[id]
	if !ok {
		return domain.Route{}, domain.ErrRouteNotExists
	}
	rt.Default = r.hasDefault && id == r.defaultID
	return rt, nil
}

func (r *Registry) Default() (domain.Route, error) {
	if !r.hasDefault {
		return domain.Route{}, domain.ErrRouteNotExists
	}
	return r.Lookup(r.defaultID)
}

// Resolve treats the zero id as the default route.
func (r *Registry) Resolve(id common.Hash) (domain.Route, error) {
	if id == (common.Hash{}) {
		return r.Default()
	}
	return r.Lookup(id)
}

// SetEnabled toggles a route for every agent at once.
func (r *Registry) SetEnabled(id common.Hash, enabled bool) error {
	rt, ok := r.routes[id]
	if !ok {
		return domain.ErrRouteNotExists
	}
	rt.Enabled = enabled
	r.routes[id] = rt
	return nil
}

// List returns every route sorted by id.
func (r *Registry) List() []domain.Route {
	ids := make([]common.Hash, 0, len(r.routes))
	for id := range r.routes {
		ids = append(ids, id)
	}
	domain.SortHashes(ids)

	out := make([]domain.Route, 0, len(ids))
	for _, id := range ids {
		rt, _ := r.Lookup(id)
		out = append(out, rt)
	}
	return out
}

func (r *Registry) Len() int { return len(r.routes) }

package custody

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/xela07ax/agentvault/internal/domain"
)

// Custody moves the vault asset between a principal's wallet and the vault.
type Custody interface {
	// Pull transfers amount from the principal's wallet into the vault.
	Pull(from common.Address, amount uint256.Int) error
	// Release transfers amount from the vault back to the principal's wallet.
	Release(to common.Address, amount uint256.Int) error
}

// MemoryToken is an in-process fungible asset with a vault account.
type MemoryToken struct {
	mu       sync.Mutex
	symbol   string
	wallets  map[common.Address]uint256.Int
	held     uint256.Int
	failNext error
}

func NewMemoryToken(symbol string) *MemoryToken {
	return &MemoryToken{
		symbol:  symbol,
		wallets: make(map[common.Address]uint256.Int),
	}
}

func (t *MemoryToken) Symbol() string { return t.symbol }

// Mint credits a wallet out of thin air. Used by bootstrap and tests.
func (t *MemoryToken) Mint(to common.Address, amount uint256.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	bal := t.wallets[to]
	if _, overflow := bal.AddOverflow(&bal, &amount); overflow {
		return fmt.Errorf("mint %s: %w", t.symbol, domain.ErrOverflow)
	}
	t.wallets[to] = bal
	return nil
}

// FailNext makes the next transfer fail with err.
func (t *MemoryToken) FailNext(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failNext = err
}

func (t *MemoryToken) WalletOf(addr common.Address) uint256.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.wallets[addr]
}

// Held is the amount currently in custody.
func (t *MemoryToken) Held() uint256.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.held
}

func (t *MemoryToken) Pull(from common.Address, amount uint256.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.takeFailure(); err != nil {
		return err
	}

	bal := t.wallets[from]
	if bal.Lt(&amount) {
		return fmt.Errorf("pull %s from %s: %w", t.symbol, from.Hex(), domain.ErrInsufficientBalance)
	}
	var held uint256.Int
	if _, overflow := held.AddOverflow(&t.held, &amount); overflow {
		return fmt.Errorf("pull %s: %w", t.symbol, domain.ErrOverflow)
	}
	bal.Sub(&bal, &amount)
	t.wallets[from] = bal
	t.held = held
	return nil
}

func (t *MemoryToken) Release(to common.Address, amount uint256.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.takeFailure(); err != nil {
		return err
	}

	if t.held.Lt(&amount) {
		return fmt.Errorf("release %s: %w", t.symbol, domain.ErrInsufficientBalance)
	}
	bal := t.wallets[to]
	if _, overflow := bal.AddOverflow(&bal, &amount); overflow {
		return fmt.Errorf("release %s: %w", t.symbol, domain.ErrOverflow)
	}
	t.held.Sub(&t.held, &amount)
	t.wallets[to] = bal
	return nil
}

func (t *MemoryToken) takeFailure() error {
	err := t.failNext
	t.failNext = nil
	return err
}

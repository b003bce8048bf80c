// Package ledger keeps principal main balances and per-agent sub-balances.
//
// Every mutation goes through a staged Tx: changes are invisible until Commit,
// and a discarded Tx leaves no trace. The ledger itself is not safe for
// concurrent use; the engine serializes access.
package ledger

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/xela07ax/agentvault/internal/custody"
	"github.com/xela07ax/agentvault/internal/domain"
)

type principalState struct {
	main      uint256.Int
	deposited uint256.Int
	withdrawn uint256.Int
}

type accountKey struct {
	principal common.Address
	agent     common.Address
}

type dailyKey struct {
	agent common.Address
	day   int64
}

type Ledger struct {
	custody    custody.Custody
	now        func() time.Time
	principals map[common.Address]principalState
	accounts   map[accountKey]domain.AgentAccount
	daily      map[dailyKey]uint256.Int
}

func New(c custody.Custody) *Ledger {
	return &Ledger{
		custody:    c,
		now:        time.Now,
		principals: make(map[common.Address]principalState),
		accounts:   make(map[accountKey]domain.AgentAccount),
		daily:      make(map[dailyKey]uint256.Int),
	}
}

// WithClock replaces the clock used for daily cap windows.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

// DayIndex is the UTC day number used for daily cap accounting.
func DayIndex(t time.Time) int64 {
	return t.UTC().Unix() / 86400
}

// Deposit pulls amount into custody and credits the principal's main balance.
func (l *Ledger) Deposit(principal common.Address, amount uint256.Int) error {
	tx := l.Begin()
	defer tx.Discard()

	if err := tx.Credit(principal, amount); err != nil {
		return err
	}
	if err := l.custody.Pull(principal, amount); err != nil {
		return fmt.Errorf("deposit: custody pull: %w", err)
	}
	return tx.Commit()
}

// Withdraw debits the main balance and releases amount from custody.
// A custody failure reverts the debit.
func (l *Ledger) Withdraw(principal common.Address, amount uint256.Int) error {
	tx := l.Begin()
	defer tx.Discard()

	if err := tx.Debit(principal, amount); err != nil {
		return err
	}
	if err := l.custody.Release(principal, amount); err != nil {
		return fmt.Errorf("withdraw: custody release: %w", err)
	}
	return tx.Commit()
}

func (l *Ledger) AllocateToAgent(principal, agent common.Address, amount uint256.Int) error {
	tx := l.Begin()
	defer tx.Discard()

	if err := tx.Allocate(principal, agent, amount); err != nil {
		return err
	}
	return tx.Commit()
}

func (l *Ledger) DeallocateFromAgent(principal, agent common.Address, amount uint256.Int) error {
	tx := l.Begin()
	defer tx.Discard()

	if err := tx.Deallocate(principal, agent, amount); err != nil {
		return err
	}
	return tx.Commit()
}

// ConsumeAgentBalance spends from a sub-balance under cfg's limits.
func (l *Ledger) ConsumeAgentBalance(principal, agent common.Address, amount uint256.Int, cfg domain.AgentConfig) error {
	tx := l.Begin()
	defer tx.Discard()

	if err := tx.Consume(principal, agent, amount, cfg); err != nil {
		return err
	}
	return tx.Commit()
}

// Balance returns the principal's main balance.
func (l *Ledger) Balance(principal common.Address) uint256.Int {
	return l.principals[principal].main
}

// Account returns the (principal, agent) sub-account.
func (l *Ledger) Account(principal, agent common.Address) domain.AgentAccount {
	return l.accounts[accountKey{principal, agent}]
}

// Totals returns lifetime deposited and withdrawn amounts of a principal.
func (l *Ledger) Totals(principal common.Address) (deposited, withdrawn uint256.Int) {
	s := l.principals[principal]
	return s.deposited, s.withdrawn
}

// SpentToday is the amount an agent consumed across all principals in the current UTC day.
func (l *Ledger) SpentToday(agent common.Address) uint256.Int {
	return l.daily[dailyKey{agent, DayIndex(l.now())}]
}

// Principals lists every principal that ever deposited, sorted.
func (l *Ledger) Principals() []common.Address {
	out := make([]common.Address, 0, len(l.principals))
	for p := range l.principals {
		out = append(out, p)
	}
	domain.SortAddresses(out)
	return out
}

// AgentsOf lists agents that hold an account under principal, sorted.
func (l *Ledger) AgentsOf(principal common.Address) []common.Address {
	var out []common.Address
	for k := range l.accounts {
		if k.principal == principal {
			out = append(out, k.agent)
		}
	}
	domain.SortAddresses(out)
	return out
}

// Aggregate sums main, sub and spent over every principal.
func (l *Ledger) Aggregate() (main, sub, spent uint256.Int) {
	for _, s := range l.principals {
		main.Add(&main, &s.main)
	}
	for _, a := range l.accounts {
		sub.Add(&sub, &a.SubBalance)
		spent.Add(&spent, &a.Spent)
	}
	return main, sub, spent
}

// CheckConservation verifies main + Σsub + Σspent == deposited - withdrawn.
func (l *Ledger) CheckConservation(principal common.Address) error {
	s := l.principals[principal]

	var lhs uint256.Int
	lhs.Set(&s.main)
	for k, a := range l.accounts {
		if k.principal != principal {
			continue
		}
		lhs.Add(&lhs, &a.SubBalance)
		lhs.Add(&lhs, &a.Spent)
	}

	var rhs uint256.Int
	rhs.Sub(&s.deposited, &s.withdrawn)

	if !lhs.Eq(&rhs) {
		return fmt.Errorf("conservation broken for %s: holdings %s != net deposits %s",
			principal.Hex(), lhs.Dec(), rhs.Dec())
	}
	return nil
}

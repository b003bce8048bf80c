package ledger

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/xela07ax/agentvault/internal/domain"
)

var ErrTxClosed = errors.New("ledger transaction already closed")

// Tx stages ledger changes in overlay maps until Commit.
type Tx struct {
	l          *Ledger
	principals map[common.Address]principalState
	accounts   map[accountKey]domain.AgentAccount
	daily      map[dailyKey]uint256.Int
	closed     bool
}

func (l *Ledger) Begin() *Tx {
	return &Tx{
		l:          l,
		principals: make(map[common.Address]principalState),
		accounts:   make(map[accountKey]domain.AgentAccount),
		daily:      make(map[dailyKey]uint256.Int),
	}
}

// Commit publishes staged changes. A closed Tx cannot be committed again.
func (tx *Tx) Commit() error {
	if tx.closed {
		return ErrTxClosed
	}
	tx.closed = true

	for k, v := range tx.principals {
		tx.l.principals[k] = v
	}
	for k, v := range tx.accounts {
		tx.l.accounts[k] = v
	}
	for k, v := range tx.daily {
		tx.l.daily[k] = v
	}
	return nil
}

// Discard drops staged changes. Safe to call after Commit.
func (tx *Tx) Discard() {
	tx.closed = true
	tx.principals = nil
	tx.accounts = nil
	tx.daily = nil
}

func (tx *Tx) principal(p common.Address) principalState {
	if s, ok := tx.principals[p]; ok {
		return s
	}
	return tx.l.principals[p]
}

func (tx *Tx) account(p, a common.Address) domain.AgentAccount {
	k := accountKey{p, a}
	if acc, ok := tx.accounts[k]; ok {
		return acc
	}
	return tx.l.accounts[k]
}

func (tx *Tx) spentOn(k dailyKey) uint256.Int {
	if v, ok := tx.daily[k]; ok {
		return v
	}
	return tx.l.daily[k]
}

func (tx *Tx) check(principal common.Address, amount uint256.Int) error {
	if tx.closed {
		return ErrTxClosed
	}
	if amount.IsZero() {
		return domain.ErrAmountZero
	}
	if principal == (common.Address{}) {
		return domain.ErrAddressZero
	}
	return nil
}

// Credit increases the main balance and the deposited total.
func (tx *Tx) Credit(principal common.Address, amount uint256.Int) error {
	if err := tx.check(principal, amount); err != nil {
		return err
	}
	s := tx.principal(principal)

	if _, overflow := s.main.AddOverflow(&s.main, &amount); overflow {
		return fmt.Errorf("credit main: %w", domain.ErrOverflow)
	}
	if _, overflow := s.deposited.AddOverflow(&s.deposited, &amount); overflow {
		return fmt.Errorf("credit deposited: %w", domain.ErrOverflow)
	}
	tx.principals[principal] = s
	return nil
}

// Debit decreases the main balance and increases the withdrawn total.
func (tx *Tx) Debit(principal common.Address, amount uint256.Int) error {
	if err := tx.check(principal, amount); err != nil {
		return err
	}
	s := tx.principal(principal)

	if s.main.Lt(&amount) {
		return domain.ErrInsufficientBalance
	}
	s.main.Sub(&s.main, &amount)
	s.withdrawn.Add(&s.withdrawn, &amount)
	tx.principals[principal] = s
	return nil
}

// Allocate moves amount from main to the agent's sub-balance.
func (tx *Tx) Allocate(principal, agent common.Address, amount uint256.Int) error {
	if err := tx.check(principal, amount); err != nil {
		return err
	}
	if agent == (common.Address{}) {
		return domain.ErrAddressZero
	}
	s := tx.principal(principal)
	if s.main.Lt(&amount) {
		return domain.ErrInsufficientBalance
	}
	acc := tx.account(principal, agent)

	s.main.Sub(&s.main, &amount)
	acc.SubBalance.Add(&acc.SubBalance, &amount)

	tx.principals[principal] = s
	tx.accounts[accountKey{principal, agent}] = acc
	return nil
}

// Deallocate moves amount from the agent's sub-balance back to main.
func (tx *Tx) Deallocate(principal, agent common.Address, amount uint256.Int) error {
	if err := tx.check(principal, amount); err != nil {
		return err
	}
	acc := tx.account(principal, agent)
	if acc.SubBalance.Lt(&amount) {
		return domain.ErrInsufficientBalance
	}
	s := tx.principal(principal)

	acc.SubBalance.Sub(&acc.SubBalance, &amount)
	s.main.Add(&s.main, &amount)

	tx.principals[principal] = s
	tx.accounts[accountKey{principal, agent}] = acc
	return nil
}

// Consume spends from a sub-balance. It is the only path that increases Spent.
// Checks run in order: amount, per-trade cap, daily cap, balance.
func (tx *Tx) Consume(principal, agent common.Address, amount uint256.Int, cfg domain.AgentConfig) error {
	if tx.closed {
		return ErrTxClosed
	}
	if amount.IsZero() {
		return domain.ErrAmountZero
	}
	if amount.Gt(&cfg.MaxPerTrade) {
		return domain.ErrTradeTooBig
	}

	dk := dailyKey{agent, DayIndex(tx.l.now())}
	spentToday := tx.spentOn(dk)
	if cfg.DailyCapEnabled {
		var next uint256.Int
		if _, overflow := next.AddOverflow(&spentToday, &amount); overflow || next.Gt(&cfg.DailyCap) {
			return domain.ErrDailyCapExceeded
		}
	}

	acc := tx.account(principal, agent)
	if acc.SubBalance.Lt(&amount) {
		return domain.ErrInsufficientBalance
	}

	acc.SubBalance.Sub(&acc.SubBalance, &amount)
	acc.Spent.Add(&acc.Spent, &amount)
	spentToday.Add(&spentToday, &amount)

	tx.accounts[accountKey{principal, agent}] = acc
	tx.daily[dk] = spentToday
	return nil
}

// Account reads the staged view of a sub-account.
func (tx *Tx) Account(principal, agent common.Address) domain.AgentAccount {
	return tx.account(principal, agent)
}

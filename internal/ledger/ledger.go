package ledger

import (
	"errors"

	"easybet/internal/models"
)

var (
	// ErrAlreadyClaimed is returned by ClaimAirdrop after the first
	// successful claim. There is no idempotent retry: a second call fails.
	ErrAlreadyClaimed = errors.New("airdrop already claimed")

	// ErrInsufficientBalance is returned when a debit exceeds the payer's balance.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInvalidAmount is returned for zero-valued transfers, stakes and prices.
	ErrInvalidAmount = errors.New("amount must be greater than zero")
)

// DefaultAirdropAmount is the fixed one-time grant per account.
const DefaultAirdropAmount uint64 = 1000

// Ledger tracks fungible balances and one-time airdrop eligibility.
//
// It is not safe for concurrent use on its own; callers serialize access
// (the lottery service holds the single engine lock).
type Ledger struct {
	accounts      map[string]*models.Account
	airdropAmount uint64
}

// New returns an empty ledger. A zero airdropAmount falls back to
// DefaultAirdropAmount.
func New(airdropAmount uint64) *Ledger {
	if airdropAmount == 0 {
		airdropAmount = DefaultAirdropAmount
	}
	return &Ledger{
		accounts:      make(map[string]*models.Account),
		airdropAmount: airdropAmount,
	}
}

// account returns the record for addr, creating it lazily.
func (l *Ledger) account(addr string) *models.Account {
	acc, ok := l.accounts[addr]
	if !ok {
		acc = &models.Account{Address: addr}
		l.accounts[addr] = acc
	}
	return acc
}

// ClaimAirdrop credits the fixed grant exactly once per account and returns
// the new balance.
func (l *Ledger) ClaimAirdrop(addr string) (uint64, error) {
	acc := l.account(addr)
	if acc.AirdropClaimed {
		return 0, ErrAlreadyClaimed
	}
	acc.Balance += l.airdropAmount
	acc.AirdropClaimed = true
	return acc.Balance, nil
}

// Transfer debits from and credits to atomically. On any error no balance
// changes.
func (l *Ledger) Transfer(from, to string, amount uint64) error {
	if amount == 0 {
		return ErrInvalidAmount
	}
	payer := l.account(from)
	if payer.Balance < amount {
		return ErrInsufficientBalance
	}
	payer.Balance -= amount
	l.account(to).Balance += amount
	return nil
}

// BalanceOf returns the balance for addr, 0 for unknown accounts. It never
// creates an account.
func (l *Ledger) BalanceOf(addr string) uint64 {
	if acc, ok := l.accounts[addr]; ok {
		return acc.Balance
	}
	return 0
}

// HasClaimed reports whether addr has already taken its airdrop.
func (l *Ledger) HasClaimed(addr string) bool {
	if acc, ok := l.accounts[addr]; ok {
		return acc.AirdropClaimed
	}
	return false
}

// TotalSupply sums every account balance. Used by conservation checks.
func (l *Ledger) TotalSupply() uint64 {
	var total uint64
	for _, acc := range l.accounts {
		total += acc.Balance
	}
	return total
}

// Package vault implements the Collateral Vaults component (spec.md §4.2):
// per-user balance accounts whose funds move only on settled trades, with
// freeze/close controls and withdrawal fees.
//
// Grounded on the teacher's pkg/app/core/account/{account,manager}.go
// balance-locking pattern, generalized from margin-locking to the spec's
// deposit/withdraw/freeze vault model.
package vault

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gsy-exchange/clearing-node/internal/accountid"
)

// FixedFee is the collateral fee withheld on withdrawal (spec.md
// GLOSSARY), taken from the original gsy-collateral pallet's withdraw
// extrinsic (`let fee = 1000u64;`).
const FixedFee = 1000

// Status is a bitset of orthogonal vault flags (spec.md §3).
type Status uint8

const (
	StatusNone Status = 0

	StatusClosed            Status = 1 << (iota - 1)
	StatusFrozen
	StatusDepositsFrozen
	StatusWithdrawalsFrozen
)

func (s Status) Has(flag Status) bool { return s&flag != 0 }

// Collateral is the deposited-funds record of a Vault (spec.md §3).
type Collateral struct {
	Amount     int64
	DepositTime uint64
}

// Vault is a per-user collateral account (spec.md §3).
type Vault struct {
	Owner      accountid.ID
	ID         uint64
	Collateral Collateral
	Status     Status
}

var (
	ErrVaultDoesNotExist      = errors.New("vault: does not exist")
	ErrVaultClosed            = errors.New("vault: closed")
	ErrInactiveVault          = errors.New("vault: inactive")
	ErrDepositsNotAllowed     = errors.New("vault: deposits not allowed")
	ErrWithdrawalsNotAllowed  = errors.New("vault: withdrawals not allowed")
	ErrNotEnoughBalance       = errors.New("vault: not enough balance")
	ErrNotEnoughCollateral    = errors.New("vault: not enough collateral")
	ErrNotEnoughCollateralFee = errors.New("vault: not enough collateral for fee")
	ErrTransferFailed         = errors.New("vault: transfer failed")
)

// Manager owns the set of vaults and serializes all mutation, matching the
// teacher's AccountManager RWMutex pattern.
type Manager struct {
	mu     sync.RWMutex
	vaults map[accountid.ID]*Vault
	nextID uint64
}

// NewManager creates an empty vault manager.
func NewManager() *Manager {
	return &Manager{vaults: make(map[accountid.ID]*Vault)}
}

// Create opens a new, active vault for owner with zero balance. Idempotent-
// rejecting: creating a vault for an owner that already has one fails (I9).
func (m *Manager) Create(owner accountid.ID) (*Vault, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.vaults[owner]; exists {
		return nil, fmt.Errorf("vault: already exists for owner %s", owner)
	}
	m.nextID++
	v := &Vault{Owner: owner, ID: m.nextID}
	m.vaults[owner] = v
	return v, nil
}

// Restore seeds v directly into the manager, overwriting any existing entry
// for v.Owner and advancing nextID past v.ID. Used only at startup to
// reconstruct vault state from internal/storage after a restart.
func (m *Manager) Restore(v Vault) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := v
	m.vaults[v.Owner] = &cp
	if v.ID > m.nextID {
		m.nextID = v.ID
	}
}

func (m *Manager) get(owner accountid.ID) (*Vault, error) {
	v, ok := m.vaults[owner]
	if !ok {
		return nil, ErrVaultDoesNotExist
	}
	return v, nil
}

// Get returns a read-only snapshot of owner's vault.
func (m *Manager) Get(owner accountid.ID) (Vault, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, err := m.get(owner)
	if err != nil {
		return Vault{}, err
	}
	return *v, nil
}

// Deposit adds amount to owner's vault. Rejects if deposits are disallowed
// by the vault's status (spec.md §4.2).
func (m *Manager) Deposit(owner accountid.ID, amount int64, depositTime uint64) error {
	if amount <= 0 {
		return fmt.Errorf("vault: deposit amount must be positive: %d", amount)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	v, err := m.get(owner)
	if err != nil {
		return err
	}
	if err := checkActive(v); err != nil {
		return err
	}
	if v.Status.Has(StatusDepositsFrozen) {
		return ErrDepositsNotAllowed
	}
	v.Collateral.Amount += amount
	v.Collateral.DepositTime = depositTime
	return nil
}

// Withdraw removes amount + FixedFee from owner's vault. Requires
// collateral ≥ amount + FixedFee (spec.md I5).
func (m *Manager) Withdraw(owner accountid.ID, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("vault: withdraw amount must be positive: %d", amount)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	v, err := m.get(owner)
	if err != nil {
		return err
	}
	if err := checkActive(v); err != nil {
		return err
	}
	if v.Status.Has(StatusWithdrawalsFrozen) {
		return ErrWithdrawalsNotAllowed
	}
	total := amount + FixedFee
	if v.Collateral.Amount < total {
		return ErrNotEnoughCollateralFee
	}
	v.Collateral.Amount -= total
	return nil
}

// Shutdown freezes owner's vault (spec.md §4.2: "shutdown (freeze)").
func (m *Manager) Shutdown(owner accountid.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, err := m.get(owner)
	if err != nil {
		return err
	}
	v.Status |= StatusFrozen
	return nil
}

// Restart unfreezes owner's vault.
func (m *Manager) Restart(owner accountid.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, err := m.get(owner)
	if err != nil {
		return err
	}
	v.Status &^= StatusFrozen
	return nil
}

// Close closes owner's vault permanently (terminal — no further mutation).
func (m *Manager) Close(owner accountid.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, err := m.get(owner)
	if err != nil {
		return err
	}
	v.Status |= StatusClosed
	return nil
}

func checkActive(v *Vault) error {
	if v.Status.Has(StatusClosed) {
		return ErrVaultClosed
	}
	if v.Status.Has(StatusFrozen) {
		return ErrInactiveVault
	}
	return nil
}

// VerifyCollateralAmount returns true iff owner's collateral strictly
// exceeds amount + FixedFee (spec.md §4.2). No caller in this module uses
// it: neither order insertion nor settlement checks collateral with it.
func (m *Manager) VerifyCollateralAmount(owner accountid.ID, amount int64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, err := m.get(owner)
	if err != nil {
		return false
	}
	return v.Collateral.Amount > amount+FixedFee
}

// Transfer moves amount from `from`'s vault to `to`'s vault. Only called by
// the settlement path (spec.md §4.2). Rejected if either vault is inactive.
// No-op (but still validated) when from == to, matching I4's "unless buyer
// == seller, in which case no transfer occurs" — callers are expected to
// skip invoking Transfer in that case; Transfer itself still enforces I5.
func (m *Manager) Transfer(from, to accountid.ID, amount int64) error {
	if amount < 0 {
		return fmt.Errorf("vault: transfer amount must be non-negative: %d", amount)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	src, err := m.get(from)
	if err != nil {
		return fmt.Errorf("vault: transfer source: %w", err)
	}
	dst, err := m.get(to)
	if err != nil {
		return fmt.Errorf("vault: transfer destination: %w", err)
	}
	if err := checkActive(src); err != nil {
		return fmt.Errorf("%w: source %s", ErrTransferFailed, err)
	}
	if err := checkActive(dst); err != nil {
		return fmt.Errorf("%w: destination %s", ErrTransferFailed, err)
	}
	if src.Collateral.Amount < amount {
		return fmt.Errorf("%w: %v", ErrTransferFailed, ErrNotEnoughCollateral)
	}
	src.Collateral.Amount -= amount
	dst.Collateral.Amount += amount
	return nil
}

// Package registry implements account registration: root-registered users,
// user-registered proxy accounts (bounded by ProxyAccountLimit), and
// root-registered matching-engine operators (spec.md §4.1/§4.2, supplemented
// from original_source/gsy-node/modules/gsy-collateral/src/lib.rs).
package registry

import (
	"errors"
	"sync"

	"github.com/gsy-exchange/clearing-node/internal/accountid"
)

// ProxyAccountLimit bounds the number of proxies a user may register,
// mirroring the collateral pallet's ProxyAccountLimit configuration (set to
// 5 there for the default runtime).
const ProxyAccountLimit = 5

var (
	ErrAlreadyRegisteredUser     = errors.New("registry: already registered user")
	ErrAlreadyRegisteredProxy    = errors.New("registry: already registered proxy")
	ErrAlreadyRegisteredOperator = errors.New("registry: already registered matching-engine operator")
	ErrNotARegisteredUserAccount = errors.New("registry: not a registered user account")
	ErrNotARegisteredProxy       = errors.New("registry: not a registered proxy account")
	ErrNotARegisteredOperator    = errors.New("registry: not a registered matching-engine operator")
	ErrNoSelfProxy               = errors.New("registry: cannot register self as proxy")
	ErrProxyAccountsLimitReached = errors.New("registry: proxy accounts limit reached")
)

// Registry tracks registered users, their proxies, and registered
// matching-engine operators. All registration is idempotent-rejecting
// (spec.md I9).
type Registry struct {
	mu        sync.RWMutex
	users     map[accountid.ID]struct{}
	proxies   map[accountid.ID][]accountid.ID // delegator -> proxies
	operators map[accountid.ID]struct{}
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		users:     make(map[accountid.ID]struct{}),
		proxies:   make(map[accountid.ID][]accountid.ID),
		operators: make(map[accountid.ID]struct{}),
	}
}

// RegisterUser registers a new user account. Root-only by convention of the
// caller; this package does not itself check the caller's identity.
func (r *Registry) RegisterUser(user accountid.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.users[user]; exists {
		return ErrAlreadyRegisteredUser
	}
	r.users[user] = struct{}{}
	return nil
}

// IsRegisteredUser reports whether user is a registered user account.
func (r *Registry) IsRegisteredUser(user accountid.ID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.users[user]
	return ok
}

// RegisterProxy authorizes proxy to submit orders on behalf of delegator.
// Rejects self-proxy and enforces ProxyAccountLimit.
func (r *Registry) RegisterProxy(delegator, proxy accountid.ID) error {
	if delegator == proxy {
		return ErrNoSelfProxy
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.users[delegator]; !exists {
		return ErrNotARegisteredUserAccount
	}
	existing := r.proxies[delegator]
	for _, p := range existing {
		if p == proxy {
			return ErrAlreadyRegisteredProxy
		}
	}
	if len(existing) >= ProxyAccountLimit {
		return ErrProxyAccountsLimitReached
	}
	r.proxies[delegator] = append(existing, proxy)
	return nil
}

// UnregisterProxy revokes proxy's delegation from delegator.
func (r *Registry) UnregisterProxy(delegator, proxy accountid.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing := r.proxies[delegator]
	for i, p := range existing {
		if p == proxy {
			r.proxies[delegator] = append(existing[:i], existing[i+1:]...)
			return nil
		}
	}
	return ErrNotARegisteredProxy
}

// IsRegisteredProxy reports whether proxy may submit orders on behalf of
// delegator.
func (r *Registry) IsRegisteredProxy(delegator, proxy accountid.ID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.proxies[delegator] {
		if p == proxy {
			return true
		}
	}
	return false
}

// RegisterOperator authorizes operator to submit settle_trades and
// update_market_status.
func (r *Registry) RegisterOperator(operator accountid.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.operators[operator]; exists {
		return ErrAlreadyRegisteredOperator
	}
	r.operators[operator] = struct{}{}
	return nil
}

// IsRegisteredOperator reports whether operator is a registered
// matching-engine operator.
func (r *Registry) IsRegisteredOperator(operator accountid.ID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.operators[operator]
	return ok
}

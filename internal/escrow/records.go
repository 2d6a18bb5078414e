package escrow

import (
	"errors"
	"sync"
)

var (
	ErrUnknownUser   = errors.New("user does not exist")
	ErrDuplicateUser = errors.New("user already exists")
)

// Records resolves usernames to escrow accounts. Reads are concurrent;
// registration is serialized. Accounts themselves are mutated only under the
// engine's submit lock or by the intake session that owns the user.
type Records struct {
	mu       sync.RWMutex
	accounts map[string]*Account
}

func NewRecords() *Records {
	return &Records{
		accounts: make(map[string]*Account),
	}
}

// Register provisions a fresh account under username.
func (r *Records) Register(username string) (*Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.accounts[username]; ok {
		return nil, ErrDuplicateUser
	}
	account := NewAccount(username)
	r.accounts[username] = account
	return account, nil
}

// Get looks up the account for username.
func (r *Records) Get(username string) (*Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	account, ok := r.accounts[username]
	if !ok {
		return nil, ErrUnknownUser
	}
	return account, nil
}

package localstore

import (
	"context"
	"fmt"

	"github.com/arklim/sentinel-identity/internal/core/domain"
	"github.com/arklim/sentinel-identity/internal/repository"
)

// AccountRepository implements port.AccountRepository on the file store.
type AccountRepository struct {
	store *Store
}

// NewAccountRepository wires an account repository backed by the store.
func NewAccountRepository(store *Store) *AccountRepository {
	return &AccountRepository{store: store}
}

// Create appends a new account record. Email is the unique key.
func (r *AccountRepository) Create(_ context.Context, account domain.Account) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	table, err := r.store.loadTable()
	if err != nil {
		return err
	}

	for _, existing := range table.Accounts {
		if existing.Email == account.Email {
			return repository.ErrDuplicate
		}
	}

	normalizeAccount(&account)
	table.Accounts = append(table.Accounts, account)

	if err := r.store.saveTable(table); err != nil {
		return fmt.Errorf("persist account: %w", err)
	}

	return nil
}

// GetByID returns the account with the given identifier.
func (r *AccountRepository) GetByID(_ context.Context, id string) (*domain.Account, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	table, err := r.store.loadTable()
	if err != nil {
		return nil, err
	}

	for i := range table.Accounts {
		if table.Accounts[i].ID == id {
			account := table.Accounts[i]
			return &account, nil
		}
	}

	return nil, repository.ErrNotFound
}

// GetByEmail returns the account registered under the given email.
func (r *AccountRepository) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	table, err := r.store.loadTable()
	if err != nil {
		return nil, err
	}

	for i := range table.Accounts {
		if table.Accounts[i].Email == email {
			account := table.Accounts[i]
			return &account, nil
		}
	}

	return nil, repository.ErrNotFound
}

// Mutate applies fn to the matching record while holding the table lock, so
// the whole read-modify-write cycle is a single critical section. The updated
// record is returned.
func (r *AccountRepository) Mutate(_ context.Context, id string, fn func(*domain.Account) error) (*domain.Account, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	table, err := r.store.loadTable()
	if err != nil {
		return nil, err
	}

	for i := range table.Accounts {
		if table.Accounts[i].ID == id {
			if err := fn(&table.Accounts[i]); err != nil {
				return nil, err
			}
			normalizeAccount(&table.Accounts[i])
			if err := r.store.saveTable(table); err != nil {
				return nil, fmt.Errorf("persist account: %w", err)
			}
			account := table.Accounts[i]
			return &account, nil
		}
	}

	return nil, repository.ErrNotFound
}

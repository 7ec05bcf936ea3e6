package localstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/arklim/sentinel-identity/internal/core/domain"
	"github.com/arklim/sentinel-identity/internal/repository"
)

const (
	accountsFile = "accounts.json"
	sessionFile  = "session.json"

	tableSchemaVersion = 1
)

// Store is a file-backed key/value store holding the accounts table and the
// session projection as textual JSON records. Every mutation is a whole-table
// read/modify/write, so all access funnels through a single mutex; that mutex
// is the critical section that keeps a device-history update from racing a
// verification-result update on the same account.
type Store struct {
	dir string
	log *zap.Logger

	mu sync.Mutex
}

// New opens (creating if needed) a store rooted at dir.
func New(dir string, log *zap.Logger) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("store directory is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	return &Store{dir: dir, log: log}, nil
}

// accountsTable is the versioned on-disk envelope for the accounts table.
type accountsTable struct {
	SchemaVersion int              `json:"schemaVersion"`
	Accounts      []domain.Account `json:"accounts"`
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name)
}

// loadTable reads and normalizes the accounts table. The caller must hold mu.
func (s *Store) loadTable() (accountsTable, error) {
	raw, err := os.ReadFile(s.path(accountsFile))
	if errors.Is(err, os.ErrNotExist) {
		return accountsTable{SchemaVersion: tableSchemaVersion}, nil
	}
	if err != nil {
		return accountsTable{}, fmt.Errorf("read accounts table: %w", err)
	}

	var table accountsTable
	if err := json.Unmarshal(raw, &table); err != nil || table.SchemaVersion == 0 {
		// Older tables were stored as a bare array of account records.
		var legacy []domain.Account
		if legacyErr := json.Unmarshal(raw, &legacy); legacyErr != nil {
			return accountsTable{}, fmt.Errorf("%w: accounts table: %v", repository.ErrCorrupt, err)
		}
		table = accountsTable{SchemaVersion: tableSchemaVersion, Accounts: legacy}
	}

	for i := range table.Accounts {
		normalizeAccount(&table.Accounts[i])
	}
	table.SchemaVersion = tableSchemaVersion

	return table, nil
}

// saveTable writes the accounts table atomically. The caller must hold mu.
func (s *Store) saveTable(table accountsTable) error {
	return s.writeRecord(accountsFile, table)
}

func (s *Store) writeRecord(name string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}

	tmp := s.path(name) + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmp, s.path(name)); err != nil {
		return fmt.Errorf("replace %s: %w", name, err)
	}

	return nil
}

// normalizeAccount upgrades records written before the history fields existed.
func normalizeAccount(account *domain.Account) {
	if account.History == nil {
		account.History = []domain.VerificationResult{}
	}
	if account.DeviceHistory == nil {
		account.DeviceHistory = []domain.DeviceFingerprint{}
	}
	if account.DigestAlgo == "" {
		account.DigestAlgo = domain.DigestAlgoLegacy
	}
}

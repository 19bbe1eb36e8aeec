package ledger

import (
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"github.com/pathledger/pathledger/internal/errors"
)

// regionKey is the Badger key under which the ledger region lives. A
// single agent maintains a single region.
var regionKey = []byte("ledger/region")

// BadgerStorage is a Storage backed by a Badger database on disk. The
// whole region lives under one key; capacity is the stored value's length.
type BadgerStorage struct {
	db     *badger.DB
	logger *slog.Logger
}

// OpenBadger opens (or creates) the ledger database at path.
func OpenBadger(path string, logger *slog.Logger) (*BadgerStorage, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil            // Disable Badger's internal logging
	opts.SyncWrites = true       // Ensure writes are synced to disk to prevent corruption on crashes
	opts.CompactL0OnClose = true // Compact L0 tables on close for faster startup

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeIO, "failed to open ledger db")
	}

	if logger != nil {
		logger.Info("ledger database opened", "path", path)
	}

	return &BadgerStorage{db: db, logger: logger}, nil
}

// Close gracefully closes the database.
func (s *BadgerStorage) Close() error {
	if s.logger != nil {
		s.logger.Info("closing ledger database")
	}
	return s.db.Close()
}

// Read returns a copy of the region. A missing key reads as an empty
// region, which decodes to an empty ledger.
func (s *BadgerStorage) Read() ([]byte, error) {
	var out []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(regionKey)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeIO, "failed to read ledger region")
	}
	return out, nil
}

// Resize sets the region's capacity to exactly n bytes.
func (s *BadgerStorage) Resize(n int) error {
	if n < 0 {
		return errors.Configurationf("negative region size %d", n)
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		current, err := s.regionLocked(txn)
		if err != nil {
			return err
		}
		next := make([]byte, n)
		copy(next, current)
		return txn.Set(regionKey, next)
	})
	if err != nil {
		return errors.Wrap(err, errors.CodeIO, "failed to resize ledger region")
	}
	return nil
}

// Write replaces the region's contents. len(b) must match the capacity.
func (s *BadgerStorage) Write(b []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		current, err := s.regionLocked(txn)
		if err != nil {
			return err
		}
		if len(b) != len(current) {
			return errors.IOf("write length %d does not match region capacity %d", len(b), len(current))
		}
		return txn.Set(regionKey, b)
	})
	if err != nil {
		var domainErr *errors.Error
		if errors.As(err, &domainErr) {
			return domainErr
		}
		return errors.Wrap(err, errors.CodeIO, "failed to write ledger region")
	}
	return nil
}

// regionLocked reads the region inside an open transaction.
func (s *BadgerStorage) regionLocked(txn *badger.Txn) ([]byte, error) {
	item, err := txn.Get(regionKey)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

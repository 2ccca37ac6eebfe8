// Package store persists events, schedule snapshots and placements in BadgerDB.
//
// All writes go through Update, which runs inside a single serializable
// transaction: either every write of the callback is committed or none is.
package store

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

var (
	// ErrNotFound is returned when a record does not exist
	ErrNotFound = errors.New("not found")

	// ErrOrderedUnionUnsupported is returned by Tx.OrderedUnion when the store
	// cannot produce an ordered union in one pass. Callers fall back to an
	// in-memory union.
	ErrOrderedUnionUnsupported = errors.New("ordered union not supported by store")
)

// maxConflictRetries bounds how often Update re-runs a callback after a
// serialization conflict with a concurrent writer.
const maxConflictRetries = 3

// Config holds configuration for a Store
type Config struct {
	// Path is the database directory. Ignored when InMemory is true.
	Path string

	// InMemory keeps all data in RAM. Used by tests and dry runs.
	InMemory bool

	// SyncWrites fsyncs every commit.
	SyncWrites bool

	// DisableOrderedUnion makes OrderedUnion report ErrOrderedUnionUnsupported.
	DisableOrderedUnion bool

	// Logger receives badger's internal log output. Nil silences it.
	Logger *zap.Logger
}

// DefaultConfig returns production defaults for a store at path
func DefaultConfig(path string) Config {
	return Config{
		Path:       path,
		SyncWrites: true,
	}
}

// InMemoryConfig returns a configuration for throwaway stores
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// Store is a BadgerDB-backed snapshot store. Safe for concurrent use.
type Store struct {
	db           *badger.DB
	seq          *badger.Sequence
	log          *zap.Logger
	orderedUnion bool
}

// badgerLogger adapts zap to badger's Logger interface
type badgerLogger struct {
	s *zap.SugaredLogger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) { l.s.Errorf(format, args...) }

func (l badgerLogger) Warningf(format string, args ...interface{}) { l.s.Warnf(format, args...) }

func (l badgerLogger) Infof(format string, args ...interface{}) { l.s.Infof(format, args...) }

func (l badgerLogger) Debugf(format string, args ...interface{}) { l.s.Debugf(format, args...) }

// Open opens or creates a store
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent store")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create store directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)

	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
		opts = opts.WithLogger(nil)
	} else {
		opts = opts.WithLogger(badgerLogger{s: log.Named("badger").Sugar()})
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	seq, err := db.GetSequence(seqKey, 128)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open placement sequence: %w", err)
	}

	return &Store{
		db:           db,
		seq:          seq,
		log:          log,
		orderedUnion: !cfg.DisableOrderedUnion,
	}, nil
}

// OpenInMemory opens an empty in-memory store
func OpenInMemory() (*Store, error) {
	return Open(InMemoryConfig())
}

// Close releases the sequence lease and closes the database
func (s *Store) Close() error {
	if err := s.seq.Release(); err != nil {
		s.log.Warn("failed to release placement sequence", zap.Error(err))
	}
	return s.db.Close()
}

// DB exposes the underlying database so other components (the diff cache)
// can share it under their own key prefix.
func (s *Store) DB() *badger.DB {
	return s.db
}

// RunGC runs one value log garbage collection pass. A pass that finds
// nothing to rewrite is not an error.
func (s *Store) RunGC(discardRatio float64) error {
	err := s.db.RunValueLogGC(discardRatio)
	if err == nil || errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrGCInMemoryMode) {
		return nil
	}
	return fmt.Errorf("value log gc: %w", err)
}

// Update runs fn in a read-write transaction and commits if fn returns nil.
// A commit that conflicts with a concurrent writer re-runs fn against fresh
// state, so fn must not keep side effects outside the transaction.
func (s *Store) Update(ctx context.Context, fn func(tx *Tx) error) error {
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("context cancelled: %w", err)
		}

		txn := s.db.NewTransaction(true)
		err := fn(&Tx{txn: txn, store: s})
		if err == nil {
			err = txn.Commit()
		}
		txn.Discard()

		if errors.Is(err, badger.ErrConflict) && attempt < maxConflictRetries {
			s.log.Debug("transaction conflict, retrying", zap.Int("attempt", attempt))
			continue
		}
		return err
	}
}

// View runs fn in a read-only transaction
func (s *Store) View(ctx context.Context, fn func(tx *Tx) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}

	txn := s.db.NewTransaction(false)
	defer txn.Discard()

	return fn(&Tx{txn: txn, store: s})
}

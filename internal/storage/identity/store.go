// Package identity persists the player identity across sessions in an
// append-only WAL. The newest record wins; clearing writes an empty
// tombstone record rather than deleting history.
package identity

import (
	"encoding/json"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"

	"github.com/tradearena/arenacli/internal/domain"
)

const (
	// DefaultDir is where the identity WAL lives unless configured otherwise.
	DefaultDir   = "./wal/identity"
	segmentLimit = 100
	maxSegments  = 5

	identityKey = "identity"
)

// Store is a process-local key-value store for the player identity. All
// methods are synchronous and have no network effect.
type Store struct {
	wal     *gowal.Wal
	mu      sync.RWMutex
	current domain.Identity
}

// NewStore opens (or creates) the identity WAL in dir and replays it to
// recover the last persisted identity.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		dir = DefaultDir
	}

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "identity_",
		SegmentThreshold: segmentLimit,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init identity WAL")
	}

	s := &Store{wal: wal}
	if err := s.replay(); err != nil {
		_ = wal.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) replay() error {
	current := s.wal.CurrentIndex()
	for idx := uint64(1); idx <= current; idx++ {
		key, payload, err := s.wal.Get(idx)
		if err != nil {
			continue
		}
		if key != identityKey {
			continue
		}

		var id domain.Identity
		if err := json.Unmarshal(payload, &id); err != nil {
			return errors.Wrap(err, "decode identity record")
		}
		s.current = id
	}
	return nil
}

// Get returns the stored identity. An empty identity means no player has
// joined yet.
func (s *Store) Get() domain.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Set persists a new identity.
func (s *Store) Set(code, nick string) error {
	return s.write(domain.Identity{Code: code, Nick: nick})
}

// Clear forgets the stored identity.
func (s *Store) Clear() error {
	return s.write(domain.Identity{})
}

func (s *Store) write(id domain.Identity) error {
	if s == nil || s.wal == nil {
		return errors.New("identity store is not initialized")
	}

	payload, err := json.Marshal(id)
	if err != nil {
		return errors.Wrap(err, "marshal identity")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	nextIndex := s.wal.CurrentIndex() + 1
	if err := s.wal.Write(nextIndex, identityKey, payload); err != nil {
		return errors.Wrap(err, "write identity record")
	}
	s.current = id
	return nil
}

// Close closes the underlying WAL.
func (s *Store) Close() error {
	if s == nil || s.wal == nil {
		return errors.New("identity store is not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}

// Package identity issues the anonymous per-device voter id and keeps
// one-time acknowledgment flags next to it.
//
// The voter id is a vote deduplication key only. It is never used for
// authentication and has no linkage across devices.
package identity

import (
	"encoding/hex"
	"log/slog"
	"math/rand/v2"
	"sync"

	"github.com/google/uuid"
)

// Storage keys
const (
	KeyVoterID      = "voter_id"
	KeySafetyNotice = "ack.safety_notice"
)

// Store hands out the voter id, creating and persisting it on first use
type Store struct {
	backend Backend
	newID   func() string

	mu      sync.Mutex
	voterID string
	acks    map[string]bool
}

// NewStore creates a store on top of backend. A nil backend keeps everything in memory.
func NewStore(backend Backend) *Store {
	return &Store{
		backend: backend,
		newID:   newVoterID,
		acks:    make(map[string]bool),
	}
}

// GetOrCreateVoterID returns the persisted voter id, generating one on the
// first call. Storage failures are logged and degrade to a fresh id that
// stays stable for the rest of this process.
func (s *Store) GetOrCreateVoterID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.voterID != "" {
		return s.voterID
	}

	if s.backend != nil {
		id, ok, err := s.backend.Get(KeyVoterID)
		switch {
		case err != nil:
			slog.Warn("Failed to read voter id, using a fresh one", "error", err)
		case ok && id != "":
			s.voterID = id
			return id
		}
	}

	s.voterID = s.newID()
	if s.backend != nil {
		if err := s.backend.Set(KeyVoterID, s.voterID); err != nil {
			slog.Warn("Failed to persist voter id", "error", err)
		} else {
			slog.Info("Generated new voter id")
		}
	}
	return s.voterID
}

// Acknowledged reports whether the flag has been recorded on this device
func (s *Store) Acknowledged(flag string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.acks[flag] {
		return true
	}
	if s.backend == nil {
		return false
	}
	v, ok, err := s.backend.Get(flag)
	if err != nil {
		slog.Warn("Failed to read acknowledgment flag", "flag", flag, "error", err)
		return false
	}
	if ok && v == "true" {
		s.acks[flag] = true
	}
	return s.acks[flag]
}

// Acknowledge records the flag. If it cannot be persisted it still holds
// until the process exits.
func (s *Store) Acknowledge(flag string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.acks[flag] = true
	if s.backend == nil {
		return
	}
	if err := s.backend.Set(flag, "true"); err != nil {
		slog.Warn("Failed to persist acknowledgment flag", "flag", flag, "error", err)
	}
}

// newVoterID prefers a random UUID and falls back to the pseudo-random
// generator when the system entropy source is unavailable.
func newVoterID() string {
	id, err := uuid.NewRandom()
	if err == nil {
		return id.String()
	}

	slog.Warn("Crypto random unavailable, falling back to pseudo-random voter id", "error", err)
	buf := make([]byte, 16)
	for i := range buf {
		buf[i] = byte(rand.UintN(256))
	}
	return hex.EncodeToString(buf)
}

package keyring

import (
	"bufio"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Keyring errors
var (
	// ErrKeyNotFound indicates no record exists for the key ID.
	ErrKeyNotFound = errors.New("key not found")

	// ErrNoActiveKey indicates the keyring holds no active key.
	ErrNoActiveKey = errors.New("no active key")
)

// KeyStatus is the lifecycle state of a key.
type KeyStatus string

// Key statuses. Retired keys remain in the ring indefinitely so that
// ciphertext written under them stays decryptable after rotation.
const (
	StatusActive  KeyStatus = "active"
	StatusRetired KeyStatus = "retired"
)

// KeyRecord is one appended keyring entry. The effective state of a
// key ID is its most recent record.
type KeyRecord struct {
	KeyID     string    `json:"key_id"`
	Algorithm string    `json:"algorithm"`
	Status    KeyStatus `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	Material  []byte    `json:"material"`
}

// Keyring is an append-only log of symmetric keys with an in-memory
// last-write-wins index rebuilt on open. Exactly one key is active at
// any time once the ring is initialized; rotation retires the current
// active key and appends a fresh one in a single locked step.
type Keyring struct {
	path string
	now  func() time.Time

	mu       sync.RWMutex
	index    map[string]KeyRecord
	activeID string
	seq      int
}

// Open loads (or creates) a keyring backed by the log file at path.
// Key timestamps come from time.Now; use OpenWithClock to inject a
// clock.
func Open(path string) (*Keyring, error) {
	return OpenWithClock(path, time.Now)
}

// OpenWithClock is Open with an injected timestamp source, for
// deterministic CreatedAt stamps in tests.
func OpenWithClock(path string, now func() time.Time) (*Keyring, error) {
	if now == nil {
		now = time.Now
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, err
	}

	k := &Keyring{
		path:  path,
		now:   now,
		index: make(map[string]KeyRecord),
	}
	if err := k.load(); err != nil {
		return nil, err
	}
	return k, nil
}

func (k *Keyring) load() error {
	f, err := os.Open(k.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	seen := make(map[string]bool)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec KeyRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return fmt.Errorf("corrupt keyring record: %w", err)
		}
		k.index[rec.KeyID] = rec
		if !seen[rec.KeyID] {
			seen[rec.KeyID] = true
			k.seq++
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	for id, rec := range k.index {
		if rec.Status == StatusActive {
			k.activeID = id
		}
	}
	return nil
}

// Active returns the current active key record.
func (k *Keyring) Active() (KeyRecord, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	if k.activeID == "" {
		return KeyRecord{}, ErrNoActiveKey
	}
	return k.index[k.activeID], nil
}

// Get returns the effective record for a key ID, active or retired.
func (k *Keyring) Get(keyID string) (KeyRecord, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	rec, ok := k.index[keyID]
	if !ok {
		return KeyRecord{}, fmt.Errorf("%w: %s", ErrKeyNotFound, keyID)
	}
	return rec, nil
}

// Rotate retires the current active key (if any), generates a new key
// and appends it as active. Both records land in one locked append, so
// concurrent encrypt calls observe either the old or the new active
// key, never an in-between state. Old key material is never deleted.
func (k *Keyring) Rotate() (KeyRecord, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	var appends []KeyRecord

	if k.activeID != "" {
		retired := k.index[k.activeID]
		retired.Status = StatusRetired
		appends = append(appends, retired)
	}

	material := make([]byte, KeySize)
	if _, err := rand.Read(material); err != nil {
		return KeyRecord{}, fmt.Errorf("generate key material: %w", err)
	}

	next := KeyRecord{
		KeyID:     fmt.Sprintf("key-%03d", k.seq+1),
		Algorithm: Algorithm,
		Status:    StatusActive,
		CreatedAt: k.now().UTC(),
		Material:  material,
	}
	appends = append(appends, next)

	if err := k.appendRecords(appends); err != nil {
		return KeyRecord{}, err
	}

	// Swap the index only after the append is durable.
	for _, rec := range appends {
		k.index[rec.KeyID] = rec
	}
	k.activeID = next.KeyID
	k.seq++

	return next, nil
}

// EnsureActive returns the active key, creating the first key if the
// ring is empty.
func (k *Keyring) EnsureActive() (KeyRecord, error) {
	if rec, err := k.Active(); err == nil {
		return rec, nil
	}
	return k.Rotate()
}

func (k *Keyring) appendRecords(recs []KeyRecord) error {
	f, err := os.OpenFile(k.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	for _, rec := range recs {
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		if _, err := f.Write(append(data, '\n')); err != nil {
			return err
		}
	}
	return f.Sync()
}

// Package netstore persists per-network provisioner state (keys, IV index,
// sequence counter, bound application keys, unicast allocation) as YAML
// files on disk, one per network, and offers an in-memory index from nid
// to record for the network layer's inbound dispatch.
package netstore

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/meshwire/provisioner/pkg/crypto"
)

// Store is a directory of NetworkRecord YAML files with a cached nid
// index. All mutating operations are serialised by mu so that seq and
// next_unicast allocation is atomic with persistence, per the store's
// external contract.
type Store struct {
	dir string

	mu      sync.Mutex
	records map[string]*NetworkRecord // by name
	nidIdx  map[byte]*NetworkRecord
	nidBuilt bool
}

// New returns a Store rooted at dir. The directory is created if it does
// not already exist.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("netstore: create store dir: %w", err)
	}
	return &Store{
		dir:     dir,
		records: make(map[string]*NetworkRecord),
	}, nil
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name+".yml")
}

// Create writes a brand-new record. It fails if a record with the same
// name already exists, either on disk or in the cache.
func (s *Store) Create(r *NetworkRecord) error {
	if err := r.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path(r.Name)); err == nil {
		return ErrNetworkExists
	}

	if err := s.writeLocked(r); err != nil {
		return err
	}
	s.records[r.Name] = r
	s.nidBuilt = false
	return nil
}

// Load reads the named record from disk, bypassing the cache, matching
// the core's load(name) operation.
func (s *Store) Load(name string) (*NetworkRecord, error) {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNetworkNotFound
		}
		return nil, fmt.Errorf("netstore: read %s: %w", name, err)
	}

	var r NetworkRecord
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("netstore: decode %s: %w", name, err)
	}
	return &r, nil
}

// Save persists record, enforcing that seq and iv_index never regress
// relative to whatever is currently on disk.
func (s *Store) Save(r *NetworkRecord) error {
	if err := r.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, err := s.Load(r.Name); err == nil {
		if r.Seq < existing.Seq {
			return ErrSeqRegression
		}
		if r.IVIndex < existing.IVIndex {
			return ErrIVIndexRegression
		}
	} else if err != ErrNetworkNotFound {
		return err
	}

	if err := s.writeLocked(r); err != nil {
		return err
	}
	s.records[r.Name] = r
	s.nidBuilt = false
	return nil
}

func (s *Store) writeLocked(r *NetworkRecord) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("netstore: encode %s: %w", r.Name, err)
	}
	if err := os.WriteFile(s.path(r.Name), data, 0o644); err != nil {
		return fmt.Errorf("netstore: write %s: %w", r.Name, err)
	}
	return nil
}

// List returns every network record currently on disk.
func (s *Store) List() ([]*NetworkRecord, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("netstore: list dir: %w", err)
	}

	var out []*NetworkRecord
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".yml" {
			continue
		}
		name := e.Name()[:len(e.Name())-len(".yml")]
		r, err := s.Load(name)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// AllocateUnicast returns record.NextUnicast and atomically persists it
// incremented by one, so that no two callers can observe the same
// address.
func (s *Store) AllocateUnicast(name string) (uint16, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.Load(name)
	if err != nil {
		return 0, err
	}

	addr := r.NextUnicast
	r.NextUnicast++
	if err := s.writeLocked(r); err != nil {
		return 0, err
	}
	s.records[r.Name] = r
	return addr, nil
}

// AllocateSeq returns record.Seq and atomically persists Seq+1, mod
// 2^24, so that every outbound PDU on a network gets a distinct,
// strictly increasing sequence number.
func (s *Store) AllocateSeq(name string) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.Load(name)
	if err != nil {
		return 0, err
	}

	seq := r.Seq
	r.Seq = (r.Seq + 1) & 0xFFFFFF
	if err := s.writeLocked(r); err != nil {
		return 0, err
	}
	s.records[r.Name] = r
	return seq, nil
}

// NidFor derives the nid for the given record's net_key under k2(_, 0x00).
func NidFor(r *NetworkRecord) (byte, error) {
	mat, err := crypto.K2(r.NetKey, []byte{0x00})
	if err != nil {
		return 0, fmt.Errorf("netstore: derive nid: %w", err)
	}
	return mat.NID, nil
}

// FindByNid scans every persisted record and returns the one whose
// derived nid matches, or ErrNetworkNotFound if none does. Call sites
// that dispatch many inbound PDUs per second should prefer NidIndex
// instead of repeated FindByNid calls.
func (s *Store) FindByNid(nid byte) (*NetworkRecord, error) {
	records, err := s.List()
	if err != nil {
		return nil, err
	}
	for _, r := range records {
		got, err := NidFor(r)
		if err != nil {
			return nil, err
		}
		if got == nid {
			return r, nil
		}
	}
	return nil, ErrNetworkNotFound
}

// NidIndex returns a cached nid -> record map, rebuilding it from disk
// only after Create or Save has run since the last build. AllocateSeq and
// AllocateUnicast do not invalidate it, so the Seq and NextUnicast of the
// cached records can be stale. This replaces
// the per-PDU linear scan the reference implementation performs with an
// O(1) inbound lookup, per the design note on dynamic record dispatch.
func (s *Store) NidIndex() (map[byte]*NetworkRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.nidBuilt && s.nidIdx != nil {
		return s.nidIdx, nil
	}

	records, err := s.List()
	if err != nil {
		return nil, err
	}

	idx := make(map[byte]*NetworkRecord, len(records))
	for _, r := range records {
		nid, err := NidFor(r)
		if err != nil {
			return nil, err
		}
		idx[nid] = r
	}

	s.nidIdx = idx
	s.nidBuilt = true
	return idx, nil
}

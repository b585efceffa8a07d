package netstore

import "bytes"

// NetworkRecord is the per-network state persisted across restarts: the
// shared network key and its index, the current IV index, the next
// outbound sequence number, the names of application keys bound to this
// network, and the next unicast address available for allocation.
//
// Record fields mirror the Python original's NetworkData one for one
// (name, key, key_index, iv_index, seq, apps), with next_unicast added
// since the original allocated addresses out of band.
type NetworkRecord struct {
	Name         string   `yaml:"name"`
	NetKey       []byte   `yaml:"net_key"`
	NetKeyIndex  uint16   `yaml:"net_key_index"`
	IVIndex      uint32   `yaml:"iv_index"`
	Seq          uint32   `yaml:"seq"`
	Apps         []string `yaml:"apps"`
	NextUnicast  uint16   `yaml:"next_unicast"`
}

// Validate checks the field-level invariants that every NetworkRecord
// must satisfy regardless of how it was constructed.
func (r *NetworkRecord) Validate() error {
	if len(r.NetKey) != 16 {
		return ErrInvalidNetKey
	}
	if r.Seq > 0xFFFFFF {
		return errSeqOutOfRange
	}
	return nil
}

// Equal reports whether two records carry identical field values. Used by
// round-trip persistence tests.
func (r *NetworkRecord) Equal(o *NetworkRecord) bool {
	if r.Name != o.Name ||
		r.NetKeyIndex != o.NetKeyIndex ||
		r.IVIndex != o.IVIndex ||
		r.Seq != o.Seq ||
		r.NextUnicast != o.NextUnicast {
		return false
	}
	if !bytes.Equal(r.NetKey, o.NetKey) {
		return false
	}
	if len(r.Apps) != len(o.Apps) {
		return false
	}
	for i := range r.Apps {
		if r.Apps[i] != o.Apps[i] {
			return false
		}
	}
	return true
}

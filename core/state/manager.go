package state

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Davidcuama/SisteCredito-Hackaton/storage"
)

// Manager provides typed key-value access over the raw database. All
// subsystem tables live under distinct key prefixes chosen by the owning
// module; the manager itself knows nothing about their layout.
type Manager struct {
	db storage.Database
}

// NewManager wraps the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

// KVGet fetches and decodes the value stored under key into out. It reports
// whether the key existed.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	raw, err := m.db.Get(key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return false, fmt.Errorf("state: decode %q: %w", key, err)
		}
	}
	return true, nil
}

// KVPut encodes value and stores it under key.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("state: encode %q: %w", key, err)
	}
	return m.db.Put(key, raw)
}

// KVAppend appends value to the byte-slice list stored under key.
func (m *Manager) KVAppend(key []byte, value []byte) error {
	var list [][]byte
	if _, err := m.KVGet(key, &list); err != nil {
		return err
	}
	list = append(list, append([]byte(nil), value...))
	return m.KVPut(key, list)
}

// KVGetList decodes the list stored under key into out. A missing key yields
// an empty list.
func (m *Manager) KVGetList(key []byte, out interface{}) error {
	found, err := m.KVGet(key, out)
	if err != nil {
		return err
	}
	if !found {
		// Leave out at its zero value; callers treat nil as empty.
		return nil
	}
	return nil
}

// --- Roles and ownership ---

// Role names shared by the ledger modules.
const (
	// RoleReportingEntity marks principals allowed to attest payments.
	RoleReportingEntity = "ROLE_REPORTING_ENTITY"
	// RoleRewardCaller marks principals allowed to drive reward
	// distribution and address binding.
	RoleRewardCaller = "ROLE_REWARD_CALLER"
)

func roleKey(role string, addr []byte) []byte {
	return []byte("roles/" + role + "/" + hex.EncodeToString(addr))
}

var ownerKey = []byte("meta/owner")

// HasRole reports whether addr holds the given role.
func (m *Manager) HasRole(role string, addr []byte) bool {
	var granted bool
	found, err := m.KVGet(roleKey(role, addr), &granted)
	if err != nil || !found {
		return false
	}
	return granted
}

// SetRole grants or revokes a role for addr. Authorization of the caller is
// the node's responsibility.
func (m *Manager) SetRole(role string, addr []byte, granted bool) error {
	return m.KVPut(roleKey(role, addr), granted)
}

// Owner returns the configured owner principal, if set.
func (m *Manager) Owner() ([]byte, bool, error) {
	var owner []byte
	found, err := m.KVGet(ownerKey, &owner)
	if err != nil || !found {
		return nil, false, err
	}
	return owner, true, nil
}

// SetOwner records the owner principal.
func (m *Manager) SetOwner(addr []byte) error {
	return m.KVPut(ownerKey, addr)
}

// IsOwner reports whether addr is the recorded owner.
func (m *Manager) IsOwner(addr []byte) bool {
	owner, found, err := m.Owner()
	if err != nil || !found {
		return false
	}
	return string(owner) == string(addr)
}

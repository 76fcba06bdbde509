package state

import (
	"errors"
	"fmt"
	"math"

	"github.com/ethereum/go-ethereum/rlp"

	"peerswap/native/peerswap"
	"peerswap/storage"
)

// Manager reads and writes engine state in a key-value database. Values are
// RLP encoded. Pointing the manager at a storage.CacheDB gives the engine an
// all-or-nothing view of a single execution.
type Manager struct {
	db storage.Database
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

// KVPut stores the provided value under the supplied key using RLP encoding.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	return m.db.Put(key, encoded)
}

// KVGet decodes the value stored under key into out. The boolean reports
// whether the key existed.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	if len(key) == 0 {
		return false, fmt.Errorf("kv: key must not be empty")
	}
	data, err := m.db.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}

type storedConfig struct {
	Admin       [20]byte
	Active      bool
	MakerFeeBps uint16
	TakerFeeBps uint16
	NextIndex   uint32
}

func (m *Manager) ConfigGet() (*peerswap.Config, bool, error) {
	var stored storedConfig
	ok, err := m.KVGet(configKey, &stored)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &peerswap.Config{
		Admin:       stored.Admin,
		Active:      stored.Active,
		MakerFeeBps: stored.MakerFeeBps,
		TakerFeeBps: stored.TakerFeeBps,
		NextIndex:   stored.NextIndex,
	}, true, nil
}

func (m *Manager) ConfigPut(cfg *peerswap.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	return m.KVPut(configKey, &storedConfig{
		Admin:       cfg.Admin,
		Active:      cfg.Active,
		MakerFeeBps: cfg.MakerFeeBps,
		TakerFeeBps: cfg.TakerFeeBps,
		NextIndex:   cfg.NextIndex,
	})
}

type storedContractInfo struct {
	Name    string
	Version string
}

func (m *Manager) ContractInfoGet() (*peerswap.ContractInfo, bool, error) {
	var stored storedContractInfo
	ok, err := m.KVGet(contractInfoKey, &stored)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &peerswap.ContractInfo{Name: stored.Name, Version: stored.Version}, true, nil
}

func (m *Manager) ContractInfoPut(info *peerswap.ContractInfo) error {
	if info == nil {
		return fmt.Errorf("state: nil contract info")
	}
	return m.KVPut(contractInfoKey, &storedContractInfo{Name: info.Name, Version: info.Version})
}

// Height returns the logical block height, zero before the first commit.
func (m *Manager) Height() (uint64, error) {
	var height uint64
	if _, err := m.KVGet(heightKey, &height); err != nil {
		return 0, err
	}
	return height, nil
}

// SetHeight records the logical block height.
func (m *Manager) SetHeight(height uint64) error {
	return m.KVPut(heightKey, height)
}

func (m *Manager) OfferGet(id uint32) (*peerswap.Offer, bool, error) {
	var stored storedOffer
	ok, err := m.KVGet(offerKey(id), &stored)
	if err != nil || !ok {
		return nil, ok, err
	}
	offer, err := stored.toOffer()
	if err != nil {
		return nil, false, fmt.Errorf("state: offer %d: %w", id, err)
	}
	return offer, true, nil
}

func (m *Manager) OfferHas(id uint32) (bool, error) {
	return m.db.Has(offerKey(id))
}

func (m *Manager) OfferPut(id uint32, offer *peerswap.Offer) error {
	sanitized, err := peerswap.SanitizeOffer(offer)
	if err != nil {
		return err
	}
	return m.KVPut(offerKey(id), newStoredOffer(sanitized))
}

func (m *Manager) OfferDelete(id uint32) error {
	return m.db.Delete(offerKey(id))
}

// OfferIterate visits offers in ascending id order, beginning after
// startAfter when it is non-nil. Returning false from fn stops the walk.
func (m *Manager) OfferIterate(startAfter *uint32, fn func(id uint32, offer *peerswap.Offer) (bool, error)) error {
	var start []byte
	if startAfter != nil {
		if *startAfter == math.MaxUint32 {
			return nil
		}
		start = offerKey(*startAfter + 1)
	}
	return m.db.Iterate(offerPrefix, start, func(key, value []byte) (bool, error) {
		id, ok := offerIDFromKey(key)
		if !ok {
			return true, nil
		}
		var stored storedOffer
		if err := rlp.DecodeBytes(value, &stored); err != nil {
			return false, fmt.Errorf("state: decode offer %d: %w", id, err)
		}
		offer, err := stored.toOffer()
		if err != nil {
			return false, fmt.Errorf("state: offer %d: %w", id, err)
		}
		return fn(id, offer)
	})
}

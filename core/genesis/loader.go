// core/genesis/loader.go
package genesis

import (
	"fmt"

	"peerswap/core/state"
	"peerswap/core/types"
	"peerswap/native/peerswap"
	"peerswap/storage"
)

// InitFromSpec instantiates the engine in db from spec. It returns the
// events produced, or nil when db already holds a configuration. Nothing is
// written unless every step succeeds.
func InitFromSpec(spec *GenesisSpec, db storage.Database) ([]*types.Event, error) {
	if spec == nil {
		return nil, fmt.Errorf("genesis spec must not be nil")
	}
	if db == nil {
		return nil, fmt.Errorf("database must not be nil")
	}

	cache := storage.NewCacheDB(db)
	manager := state.NewManager(cache)
	if _, ok, err := manager.ConfigGet(); err != nil {
		return nil, err
	} else if ok {
		return nil, nil
	}

	engine := peerswap.NewEngine()
	engine.SetState(manager)
	res, err := engine.Instantiate(spec.AdminAddress(), peerswap.InstantiateParams{
		TakerFeeBps: spec.TakerFeeBps,
		MakerFeeBps: spec.MakerFeeBps,
	})
	if err != nil {
		cache.Discard()
		return nil, fmt.Errorf("instantiate: %w", err)
	}
	emitted := []*types.Event{res.Event}
	if !spec.IsActive() {
		paused, err := engine.SetActive(spec.AdminAddress(), false)
		if err != nil {
			cache.Discard()
			return nil, fmt.Errorf("pause: %w", err)
		}
		emitted = append(emitted, paused.Event)
	}
	if err := manager.SetSchemaVersion(state.SchemaVersion); err != nil {
		cache.Discard()
		return nil, err
	}
	if err := cache.Commit(); err != nil {
		return nil, fmt.Errorf("commit genesis: %w", err)
	}
	return emitted, nil
}

// Package entity keeps a persistent registry of the sensor entities the
// econet bridge has created, together with their last known state.
//
// The registry survives restarts, so the REST API can list every sensor
// the controller has ever exposed (including ones whose key stopped
// resolving) and report when each was last updated.
//
// Usage:
//
//	repo := entity.NewSQLiteRepository(db.DB)
//	registry := entity.NewRegistry(repo)
//	if err := registry.RefreshCache(ctx); err != nil {
//	    return err
//	}
//	observer := entity.NewObserver(registry, cfg.Econet.EntryID)
//	// pass observer to econet.BridgeOptions.Observers
package entity

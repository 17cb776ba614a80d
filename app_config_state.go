package main

import "floatrans/internal/config"

// getConfigSnapshot returns a copy of the config protected by cfgMu.
// All read access to App.cfg should go through this helper.
func (a *App) getConfigSnapshot() config.Config {
	a.cfgMu.RLock()
	defer a.cfgMu.RUnlock()
	return config.Clone(a.cfg)
}

// setConfigSnapshot stores a copy of cfg protected by cfgMu.
// All write access to App.cfg should go through this helper.
func (a *App) setConfigSnapshot(cfg config.Config) {
	a.cfgMu.Lock()
	a.cfg = config.Clone(cfg)
	a.cfgMu.Unlock()
}

// replaceConfigSnapshot stores cfg and reports whether it differs from the
// previous snapshot.
func (a *App) replaceConfigSnapshot(cfg config.Config) bool {
	a.cfgMu.Lock()
	defer a.cfgMu.Unlock()
	if a.cfg == cfg {
		return false
	}
	a.cfg = config.Clone(cfg)
	return true
}

// Package inspect streams ISR cache activity over WebSocket.
//
//	cfg := inspect.DefaultConfig()
//	cfg.Secret = secret
//	hub := inspect.NewHub(cfg)
//	cache := isr.New(isr.WithObserver(hub))
//	mux.Handle(inspect.DefaultPath, hub)
//
// Each served page and each regeneration becomes one JSON Event. Failed
// regenerations carry only an error class. Subscribers authenticate with
// a bearer secret. Slow clients miss events rather than slowing the cache
// down.
package inspect

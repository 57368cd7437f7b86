package isr

import "time"

// Observer is notified of cache activity. Implementations must be safe for
// concurrent use and must not call back into the cache.
type Observer interface {
	// Served is called once per Get with the status reported to the client.
	Served(key string, status Status)

	// Regenerated is called once per actual generation, after it finishes.
	// Callers that joined a shared generation do not trigger extra calls.
	Regenerated(key string, took time.Duration, err error)
}

// Observers fans notifications out to several observers.
type Observers []Observer

// Served implements Observer.
func (obs Observers) Served(key string, status Status) {
	for _, o := range obs {
		o.Served(key, status)
	}
}

// Regenerated implements Observer.
func (obs Observers) Regenerated(key string, took time.Duration, err error) {
	for _, o := range obs {
		o.Regenerated(key, took, err)
	}
}

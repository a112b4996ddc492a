package provider

// Observer receives decorator events. Implementations must be safe for
// concurrent use.
type Observer interface {
	CacheHit(provider string, endpoint Endpoint)
	CacheMiss(provider string, endpoint Endpoint)
	RateLimited(provider string, endpoint Endpoint)
}

// NopObserver ignores every event
type NopObserver struct{}

func (NopObserver) CacheHit(string, Endpoint)    {}
func (NopObserver) CacheMiss(string, Endpoint)   {}
func (NopObserver) RateLimited(string, Endpoint) {}

func observerOrNop(o Observer) Observer {
	if o == nil {
		return NopObserver{}
	}
	return o
}

// Package loadbalance picks which broker of a cluster a new connection
// should dial.
//
// Three strategies:
//   - RoundRobin:      equal-capacity brokers
//   - WeightedRandom:  heterogeneous brokers (different CPU/memory)
//   - ConsistentHash:  key affinity — the same destination lands on the
//     same broker while membership is stable
package loadbalance

import "stomp-client/registry"

// Balancer selects one broker from the discovered list. Called before each
// connection attempt — must be goroutine-safe.
type Balancer interface {
	Pick(instances []registry.BrokerInstance) (*registry.BrokerInstance, error)

	// Name returns the strategy name (for logging/debugging).
	Name() string
}

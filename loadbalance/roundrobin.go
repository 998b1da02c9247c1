package loadbalance

import (
	"sync/atomic"

	"github.com/pkg/errors"

	"stomp-client/registry"
)

// RoundRobinBalancer spreads connections evenly across brokers in order.
// Uses an atomic counter for lock-free, goroutine-safe operation.
type RoundRobinBalancer struct {
	counter int64
}

// Pick selects the next broker in round-robin order.
func (b *RoundRobinBalancer) Pick(instances []registry.BrokerInstance) (*registry.BrokerInstance, error) {
	if len(instances) == 0 {
		return nil, errors.New("no brokers available")
	}
	index := atomic.AddInt64(&b.counter, 1) % int64(len(instances))
	return &instances[index], nil
}

func (b *RoundRobinBalancer) Name() string {
	return "RoundRobin"
}

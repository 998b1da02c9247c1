package loadbalance

import (
	"math/rand"

	"github.com/pkg/errors"

	"stomp-client/registry"
)

// WeightedRandomBalancer picks brokers with probability proportional to
// their weight, so a broker with twice the capacity carries twice the
// connections on average.
type WeightedRandomBalancer struct{}

// Pick draws a random point in the total weight and walks the list to find
// which broker's slice it fell into.
func (b *WeightedRandomBalancer) Pick(instances []registry.BrokerInstance) (*registry.BrokerInstance, error) {
	if len(instances) == 0 {
		return nil, errors.New("no brokers available")
	}

	totalWeight := 0
	for _, inst := range instances {
		totalWeight += inst.Weight
	}
	if totalWeight <= 0 {
		// All weights zero: fall back to uniform.
		return &instances[rand.Intn(len(instances))], nil
	}

	r := rand.Intn(totalWeight)
	for i := range instances {
		r -= instances[i].Weight
		if r < 0 {
			return &instances[i], nil
		}
	}

	return nil, errors.New("unexpected error in weighted random selection")
}

func (b *WeightedRandomBalancer) Name() string {
	return "WeightedRandom"
}

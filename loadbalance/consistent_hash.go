package loadbalance

import (
	"fmt"
	"hash/crc32"
	"sort"

	"stomp-client/registry"
)

// ConsistentHashBalancer maps keys to brokers on a hash ring. The same key
// (say, a destination name) lands on the same broker until the ring
// changes, which keeps a destination's traffic on one broker's local state.
//
// Each real broker owns N virtual nodes on the ring; without them a small
// cluster clusters unevenly on the circle.
type ConsistentHashBalancer struct {
	replicas int
	ring     []uint32 // sorted hash points
	nodes    map[uint32]*registry.BrokerInstance
}

// NewConsistentHashBalancer creates a ring with 100 virtual nodes per broker.
func NewConsistentHashBalancer() *ConsistentHashBalancer {
	return &ConsistentHashBalancer{
		replicas: 100,
		ring:     []uint32{},
		nodes:    make(map[uint32]*registry.BrokerInstance),
	}
}

// Add places a broker onto the ring with its virtual nodes.
func (b *ConsistentHashBalancer) Add(instance *registry.BrokerInstance) {
	for i := 0; i < b.replicas; i++ {
		key := fmt.Sprintf("%s#%d", instance.Addr, i)
		hash := crc32.ChecksumIEEE([]byte(key))
		b.ring = append(b.ring, hash)
		b.nodes[hash] = instance
	}
	sort.Slice(b.ring, func(i, j int) bool {
		return b.ring[i] < b.ring[j]
	})
}

// Pick finds the broker responsible for the key: hash it, binary-search for
// the first ring point at or past the hash, wrapping around at the top.
//
// Note: Pick takes a key rather than an instance list — consistent hashing
// is key-based and does not implement the Balancer interface directly.
func (b *ConsistentHashBalancer) Pick(key string) (*registry.BrokerInstance, error) {
	if len(b.ring) == 0 {
		return nil, fmt.Errorf("no brokers on the ring")
	}
	hash := crc32.ChecksumIEEE([]byte(key))

	idx := sort.Search(len(b.ring), func(i int) bool {
		return b.ring[i] >= hash
	})
	if idx == len(b.ring) {
		idx = 0
	}

	return b.nodes[b.ring[idx]], nil
}

func (b *ConsistentHashBalancer) Name() string {
	return "ConsistentHash"
}

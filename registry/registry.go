// Package registry tracks the live brokers of a STOMP cluster.
//
// Brokers register themselves under a cluster name; clients discover the
// current member list and watch it for changes. A client talking to a
// single well-known broker never needs this — it exists for the failover
// case where any member of the cluster can serve the connection.
package registry

// BrokerInstance describes one reachable broker.
type BrokerInstance struct {
	Addr    string
	Weight  int // relative capacity, used by weighted balancers
	Version string
}

// Registry is the broker discovery interface.
type Registry interface {
	// Register announces a broker under the cluster name with a TTL in
	// seconds; the entry disappears on its own if the broker dies.
	Register(cluster string, instance BrokerInstance, ttl int64) error
	// Deregister removes a broker, typically during graceful shutdown.
	Deregister(cluster string, addr string) error
	// Discover returns the brokers currently registered for a cluster.
	Discover(cluster string) ([]BrokerInstance, error)
	// Watch emits the full broker list whenever membership changes.
	Watch(cluster string) <-chan []BrokerInstance
}

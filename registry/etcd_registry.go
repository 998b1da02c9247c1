// etcd-backed implementation of the Registry interface.
//
// Layout in etcd:
//
//	Key:   /stomp/brokers/{cluster}/{addr}
//	Value: JSON-encoded BrokerInstance
//
// Registration rides a TTL lease: a crashed broker stops renewing, the
// lease expires, and the entry vanishes without anyone cleaning it up.
package registry

import (
	"context"
	"encoding/json"

	clientv3 "go.etcd.io/etcd/client/v3"
)

const brokerPrefix = "/stomp/brokers/"

// EtcdRegistry implements Registry on etcd v3.
type EtcdRegistry struct {
	client *clientv3.Client // thread-safe, shared across goroutines
}

// NewEtcdRegistry connects to the given etcd endpoints.
func NewEtcdRegistry(endpoints []string) (*EtcdRegistry, error) {
	c, err := clientv3.New(clientv3.Config{
		Endpoints: endpoints,
	})
	if err != nil {
		return nil, err
	}
	return &EtcdRegistry{client: c}, nil
}

// Register stores the broker under a TTL lease and keeps the lease renewed
// in the background.
func (r *EtcdRegistry) Register(cluster string, instance BrokerInstance, ttl int64) error {
	ctx := context.TODO()

	lease, err := r.client.Grant(ctx, ttl)
	if err != nil {
		return err
	}

	val, err := json.Marshal(instance)
	if err != nil {
		return err
	}

	_, err = r.client.Put(ctx, brokerPrefix+cluster+"/"+instance.Addr, string(val), clientv3.WithLease(lease.ID))
	if err != nil {
		return err
	}

	ch, err := r.client.KeepAlive(ctx, lease.ID)
	if err != nil {
		return err
	}

	// Drain KeepAlive responses so the channel never fills up.
	go func() {
		for range ch {
		}
	}()
	return nil
}

// Close releases the etcd client and its connections.
func (r *EtcdRegistry) Close() error {
	return r.client.Close()
}

// Deregister removes the broker's entry.
func (r *EtcdRegistry) Deregister(cluster string, addr string) error {
	_, err := r.client.Delete(context.TODO(), brokerPrefix+cluster+"/"+addr)
	return err
}

// Discover lists the brokers registered for a cluster.
func (r *EtcdRegistry) Discover(cluster string) ([]BrokerInstance, error) {
	prefix := brokerPrefix + cluster + "/"

	resp, err := r.client.Get(context.TODO(), prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, err
	}

	instances := make([]BrokerInstance, 0)
	for _, kv := range resp.Kvs {
		var instance BrokerInstance
		if err := json.Unmarshal(kv.Value, &instance); err != nil {
			continue // skip malformed entries
		}
		instances = append(instances, instance)
	}

	return instances, nil
}

// Watch re-reads the member list on every change under the cluster prefix.
// Re-fetching is simpler than reconstructing state from individual watch
// events and the lists are small.
func (r *EtcdRegistry) Watch(cluster string) <-chan []BrokerInstance {
	ch := make(chan []BrokerInstance, 1)
	prefix := brokerPrefix + cluster + "/"

	go func() {
		watchChan := r.client.Watch(context.TODO(), prefix, clientv3.WithPrefix())
		for range watchChan {
			instances, _ := r.Discover(cluster)
			ch <- instances
		}
	}()

	return ch
}

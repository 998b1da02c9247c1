package loadbalance

import (
	"testing"

	"stomp-client/registry"
)

var testBrokers = []registry.BrokerInstance{
	{Addr: ":61613", Weight: 10, Version: "1.2"},
	{Addr: ":61614", Weight: 5, Version: "1.2"},
	{Addr: ":61615", Weight: 10, Version: "1.2"},
}

func TestRoundRobin(t *testing.T) {
	b := &RoundRobinBalancer{}

	results := make([]string, 3)
	for i := 0; i < 3; i++ {
		inst, err := b.Pick(testBrokers)
		if err != nil {
			t.Fatal(err)
		}
		results[i] = inst.Addr
	}

	// Fourth pick wraps around to the first.
	inst, _ := b.Pick(testBrokers)
	if inst.Addr != results[0] {
		t.Fatalf("expect wrap around to %s, got %s", results[0], inst.Addr)
	}
}

func TestRoundRobinEmpty(t *testing.T) {
	b := &RoundRobinBalancer{}
	if _, err := b.Pick([]registry.BrokerInstance{}); err == nil {
		t.Fatal("expect error for empty broker list")
	}
}

func TestWeightedRandomDistribution(t *testing.T) {
	b := &WeightedRandomBalancer{}

	counts := make(map[string]int)
	for i := 0; i < 2500; i++ {
		inst, err := b.Pick(testBrokers)
		if err != nil {
			t.Fatal(err)
		}
		counts[inst.Addr]++
	}

	// Weights 10:5:10 — the light broker should get noticeably fewer.
	if counts[":61614"] >= counts[":61613"] || counts[":61614"] >= counts[":61615"] {
		t.Errorf("weight 5 broker got %d picks vs %d and %d",
			counts[":61614"], counts[":61613"], counts[":61615"])
	}
	for addr, n := range counts {
		if n == 0 {
			t.Errorf("broker %s never picked", addr)
		}
	}
}

func TestWeightedRandomEmpty(t *testing.T) {
	b := &WeightedRandomBalancer{}
	if _, err := b.Pick([]registry.BrokerInstance{}); err == nil {
		t.Fatal("expect error for empty broker list")
	}
}

func TestConsistentHashStableKeys(t *testing.T) {
	b := NewConsistentHashBalancer()
	for i := range testBrokers {
		b.Add(&testBrokers[i])
	}

	first, err := b.Pick("/queue/orders")
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		inst, err := b.Pick("/queue/orders")
		if err != nil {
			t.Fatal(err)
		}
		if inst.Addr != first.Addr {
			t.Fatalf("key moved brokers: %s then %s", first.Addr, inst.Addr)
		}
	}
}

func TestConsistentHashEmptyRing(t *testing.T) {
	b := NewConsistentHashBalancer()
	if _, err := b.Pick("/queue/orders"); err == nil {
		t.Fatal("expect error for empty ring")
	}
}

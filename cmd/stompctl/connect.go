package main

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"stomp-client/client"
	"stomp-client/config"
	"stomp-client/loadbalance"
	"stomp-client/middleware"
	"stomp-client/registry"
	"stomp-client/transport"
)

func loadConfig() (config.Config, error) {
	if configPath == "" {
		cfg := config.Default()
		return cfg, config.Validate(cfg)
	}
	return config.Load(configPath)
}

// dial builds a connected client from the loaded configuration: options,
// middleware chain, then whichever connect path the config selects.
func dial(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*client.Client, error) {
	opts := []client.Option{
		client.WithLogger(logger),
		client.WithTransportOptions(transport.WithMaxFrameSize(cfg.MaxFrameSize)),
	}
	if cfg.Login != "" {
		opts = append(opts, client.WithLogin(cfg.Login))
	}
	if cfg.Passcode != "" {
		opts = append(opts, client.WithPasscode(cfg.Passcode))
	}
	if cfg.Host != "" {
		opts = append(opts, client.WithHost(cfg.Host))
	}
	for name, value := range cfg.Headers {
		opts = append(opts, client.WithHeader(name, value))
	}

	mw := []middleware.Middleware{middleware.LoggingMiddleware(logger)}
	if cfg.SendRatePerSec > 0 {
		mw = append(mw, middleware.RateLimitMiddleware(cfg.SendRatePerSec, cfg.SendBurst))
	}
	if cfg.SendTimeout > 0 {
		mw = append(mw, middleware.TimeoutMiddleware(cfg.SendTimeout))
	}
	opts = append(opts, client.WithMiddleware(mw...))

	switch {
	case cfg.UseWebSocket:
		host := cfg.Host
		if host == "" {
			host = cfg.WebSocketURL
		}
		return client.ConnectWebSocket(ctx, cfg.WebSocketURL, host, opts...)
	case len(cfg.EtcdEndpoints) > 0:
		return dialCluster(ctx, cfg, opts)
	default:
		return client.Connect(ctx, cfg.BrokerAddr, opts...)
	}
}

func dialCluster(ctx context.Context, cfg config.Config, opts []client.Option) (*client.Client, error) {
	reg, err := registry.NewEtcdRegistry(cfg.EtcdEndpoints)
	if err != nil {
		return nil, errors.Wrap(err, "connect to etcd")
	}
	defer reg.Close()

	switch cfg.Balancer {
	case config.BalancerWeightedRandom:
		return client.ConnectCluster(ctx, reg, cfg.Cluster, &loadbalance.WeightedRandomBalancer{}, opts...)
	case config.BalancerConsistentHash:
		// Key-based selection does not fit the Balancer interface; hash
		// the cluster name so every stompctl run for a cluster lands on
		// the same broker while membership is stable.
		instances, err := reg.Discover(cfg.Cluster)
		if err != nil {
			return nil, errors.Wrapf(err, "discover brokers for %s", cfg.Cluster)
		}
		ring := loadbalance.NewConsistentHashBalancer()
		for i := range instances {
			ring.Add(&instances[i])
		}
		instance, err := ring.Pick(cfg.Cluster)
		if err != nil {
			return nil, err
		}
		return client.Connect(ctx, instance.Addr, opts...)
	default:
		return client.ConnectCluster(ctx, reg, cfg.Cluster, &loadbalance.RoundRobinBalancer{}, opts...)
	}
}

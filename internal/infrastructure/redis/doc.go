// Package redis connects authgate to the Redis server that holds the
// session registry.
//
// It wraps github.com/redis/go-redis/v9 the same way the mqtt and influxdb
// packages wrap their clients: Connect verifies the server with a ping,
// HealthCheck backs the /health endpoint and Close releases the pool.
// The session registry itself lives in internal/auth and only sees the
// redis.UniversalClient interface.
//
// Usage:
//
//	client, err := redis.Connect(ctx, cfg.Redis)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	registry, err := auth.NewRegistry(client.Universal())
package redis

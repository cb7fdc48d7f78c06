// Package redis connects the wallet service to Redis with go-redis.
//
// Connect parses Config.ConnectionURL, then pings the server up to
// RetryAttempts times, RetryInterval apart, all within ConnectTimeout. A
// client that never answers is reported as ErrRedisNotReady joined with the
// last go-redis error, so errors.Is works on both.
//
// The returned client backs pkg/wallet/redisstore, which keeps each wallet
// in a hash under Config.KeyPrefix and mutates it through Lua scripts.
// Healthcheck exposes a ping for the readiness endpoint.
//
// # Usage
//
//	var cfg redis.Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	store := redisstore.New(client, redisstore.WithKeyPrefix(cfg.KeyPrefix))
//	probe := redis.Healthcheck(client)
package redis

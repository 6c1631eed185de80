// Package redis opens the shared Redis client used for the blocklist and the
// template cache.
//
// Open parses a redis:// or rediss:// URL, applies pool settings from Config
// and pings with linear backoff until the server answers or attempts run out:
//
//	client, err := redis.Open(ctx, redis.Config{URL: os.Getenv("REDIS_URL")})
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
// Healthcheck plugs into the readiness endpoint.
package redis

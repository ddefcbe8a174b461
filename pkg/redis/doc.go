// Package redis opens go-redis clients for the redis-backed session and
// transient stores and exposes readiness and shutdown helpers.
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	tokens := transient.NewRedis(client, "gatehouse")
package redis

// Package redis opens go-redis clients and adapts them to the application
// lifecycle: a readiness check for the health probe and a shutdown hook.
//
//	client, err := redis.Open(ctx, cfg.Redis.URL, redis.WithLogger(log))
//	if err != nil {
//		return err
//	}
//
//	app := conveyor.New(
//		conveyor.WithHealthChecks(
//			conveyor.WithReadinessCheck("redis", redis.Healthcheck(client)),
//		),
//	)
//	return app.Run(":8080", conveyor.ShutdownHook(redis.Shutdown(client)))
package redis

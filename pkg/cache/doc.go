// Package cache provides a generic key-value cache with in-memory and Redis
// backends.
//
// Memory keeps live values, so it can hold anything, including handler and
// middleware instances. Redis stores bytes produced by a Codec and suits
// plain data such as buffered HTTP responses shared between replicas.
//
//	instances := cache.NewMemory[any]()
//	defer instances.Close()
//
//	v, err := cache.GetOrSet(ctx, instances, "key", func(ctx context.Context) (any, time.Duration, error) {
//		return build(ctx), time.Minute, nil
//	})
//
// GetOrSet collapses concurrent misses for one key into a single call.
package cache

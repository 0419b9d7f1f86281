package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"
)

// Cache is a key-value store with per-entry expiry.
//
// The ttl passed to Set is interpreted the same way by every backend:
// positive expires after ttl, zero uses the backend default and negative
// keeps the entry until it is deleted or evicted.
type Cache[V any] interface {
	// Get returns ErrNotFound for missing or expired keys.
	Get(ctx context.Context, key string) (V, error)
	Set(ctx context.Context, key string, value V, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Has(ctx context.Context, key string) (bool, error)
	Close() error
}

// Codec converts values to bytes for backends that store bytes.
type Codec[V any] interface {
	Encode(v V) ([]byte, error)
	Decode(data []byte) (V, error)
}

// JSONCodec encodes values with encoding/json.
type JSONCodec[V any] struct{}

// Encode implements Codec.
func (JSONCodec[V]) Encode(v V) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Join(ErrEncode, err)
	}
	return data, nil
}

// Decode implements Codec.
func (JSONCodec[V]) Decode(data []byte) (V, error) {
	var v V
	if err := json.Unmarshal(data, &v); err != nil {
		return v, errors.Join(ErrDecode, err)
	}
	return v, nil
}

var flights singleflight.Group

type computed[V any] struct {
	value V
}

// GetOrSet returns the cached value for key, computing and storing it with
// fn on a miss. Concurrent misses for the same key share one call to fn.
// Errors from fn are returned and nothing is stored. A failing Set is
// ignored; the computed value is still returned.
//
// fn runs detached from the cancellation of ctx, since its result is shared
// by every caller waiting on the key. A caller whose ctx ends stops waiting
// and gets ctx.Err(); the computation continues for the others.
func GetOrSet[V any](ctx context.Context, c Cache[V], key string, fn func(ctx context.Context) (V, time.Duration, error)) (V, error) {
	var zero V
	if v, err := c.Get(ctx, key); err == nil {
		return v, nil
	}

	shared := context.WithoutCancel(ctx)
	ch := flights.DoChan(fmt.Sprintf("%T@%p/%s", c, c, key), func() (any, error) {
		if v, err := c.Get(shared, key); err == nil {
			return computed[V]{value: v}, nil
		}
		v, ttl, err := fn(shared)
		if err != nil {
			return nil, err
		}
		_ = c.Set(shared, key, v, ttl)
		return computed[V]{value: v}, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		out, _ := res.Val.(computed[V])
		return out.value, nil
	}
}

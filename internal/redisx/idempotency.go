package redisx

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ErrInFlight means another request holding the same idempotency key has
// not finished yet.
var ErrInFlight = errors.New("request with this idempotency key is in progress")

const pendingMarker = "pending"

// Idempotency remembers the response of the first request made with a
// client-supplied key.
type Idempotency struct {
	KV KV
}

func idemKey(key string) string { return fmt.Sprintf(KeyIdemInvoiceCreate, key) }

// Claim reserves key for the caller. first is true when the caller should do
// the work; otherwise stored holds the earlier response.
func (i Idempotency) Claim(ctx context.Context, key string) (stored []byte, first bool, err error) {
	ok, err := i.KV.SetNX(ctx, idemKey(key), pendingMarker, TTLIdemPending).Result()
	if err != nil {
		return nil, false, err
	}
	if ok {
		return nil, true, nil
	}
	v, err := i.KV.Get(ctx, idemKey(key)).Result()
	switch {
	case errors.Is(err, redis.Nil):
		// pending claim expired between the two calls
		return i.Claim(ctx, key)
	case err != nil:
		return nil, false, err
	case v == pendingMarker:
		return nil, false, ErrInFlight
	}
	return []byte(v), false, nil
}

// Complete stores the response for replays.
func (i Idempotency) Complete(ctx context.Context, key string, response []byte) error {
	return i.KV.Set(ctx, idemKey(key), string(response), TTLIdempotency).Err()
}

// Release drops a claim whose request failed so the client can retry.
func (i Idempotency) Release(ctx context.Context, key string) error {
	return i.KV.Del(ctx, idemKey(key)).Err()
}

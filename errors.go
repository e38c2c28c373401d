package mutationcache

import (
	"errors"

	"github.com/huykn/mutation-cache/cache"
	"github.com/huykn/mutation-cache/effect"
	"github.com/huykn/mutation-cache/key"
	"github.com/huykn/mutation-cache/storage"
	cachesync "github.com/huykn/mutation-cache/sync"
)

// ErrUnknownMutationKind is returned when a mutation kind has no registry entry.
var ErrUnknownMutationKind = effect.ErrUnknownMutationKind

// ErrStoreUnavailable is wrapped by every synchronization store failure.
var ErrStoreUnavailable = cachesync.ErrStoreUnavailable

// ErrMalformedPattern marks keys and patterns that can never match.
var ErrMalformedPattern = key.ErrMalformedPattern

// ErrInvalidConfig is returned when the engine configuration is invalid.
var ErrInvalidConfig = cache.ErrInvalidConfig

// ErrStoreClosed is returned when operations are performed on a closed store.
var ErrStoreClosed = cache.ErrStoreClosed

// ErrEngineClosed is returned when operations are performed on a closed engine.
var ErrEngineClosed = errors.New("engine is closed")

// ErrRedisConnection is returned when Redis connection fails.
var ErrRedisConnection = storage.ErrConnection

// ErrSerializationFailed is returned when serialization fails.
var ErrSerializationFailed = storage.ErrSerialization

// ErrDeserializationFailed is returned when deserialization fails.
var ErrDeserializationFailed = storage.ErrDeserialization

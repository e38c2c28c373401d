package mutationcache

import (
	"github.com/huykn/mutation-cache/cache"
	"github.com/huykn/mutation-cache/effect"
	"github.com/huykn/mutation-cache/key"
	cachesync "github.com/huykn/mutation-cache/sync"
)

// Logger is an alias for cache.Logger.
type Logger = cache.Logger

// Marshaller is an alias for cache.Marshaller.
type Marshaller = cache.Marshaller

// LocalCacheFactory is an alias for cache.LocalCacheFactory.
type LocalCacheFactory = cache.LocalCacheFactory

// LocalCacheConfig is an alias for cache.LocalCacheConfig.
type LocalCacheConfig = cache.LocalCacheConfig

// Store is an alias for cache.Store.
type Store = cache.Store

// Entry is an alias for cache.Entry.
type Entry = cache.Entry

// FetchFunc is an alias for cache.FetchFunc.
type FetchFunc = cache.FetchFunc

// Key is an alias for key.Key.
type Key = key.Key

// Fields is an alias for key.Fields.
type Fields = key.Fields

// Descriptor is an alias for effect.Descriptor.
type Descriptor = effect.Descriptor

// Registry is an alias for effect.Registry.
type Registry = effect.Registry

// ResolveFunc is an alias for effect.ResolveFunc.
type ResolveFunc = effect.ResolveFunc

// Report is an alias for sync.Report.
type Report = cachesync.Report

// DefaultLocalCacheConfig returns default local cache configuration.
func DefaultLocalCacheConfig() LocalCacheConfig {
	return cache.DefaultLocalCacheConfig()
}

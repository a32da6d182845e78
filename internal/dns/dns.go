// Package dns provides forward and reverse name resolution behind a bounded
// LRU cache. Access logs repeat the same handful of addresses thousands of
// times, so both positive and negative results are cached.
package dns

import (
	"container/list"
	"context"
	"net"
	"net/netip"
	"strings"
)

// DefaultCacheSize bounds each direction's cache when the options don't
// specify a size.
const DefaultCacheSize = 10000

// lruCache is a fixed-capacity map with least-recently-used eviction.
type lruCache struct {
	capacity int
	order    *list.List
	entries  map[string]*list.Element
}

type lruEntry struct {
	key   string
	value any
}

func newLRU(capacity int) *lruCache {
	return &lruCache{
		capacity: capacity,
		order:    list.New(),
		entries:  make(map[string]*list.Element),
	}
}

func (c *lruCache) get(key string) (any, bool) {
	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*lruEntry).value, true
}

func (c *lruCache) put(key string, value any) {
	if el, ok := c.entries[key]; ok {
		c.order.MoveToFront(el)
		el.Value.(*lruEntry).value = value
		return
	}
	c.entries[key] = c.order.PushFront(&lruEntry{key: key, value: value})
	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*lruEntry).key)
	}
}

// LookupFuncs abstracts the underlying resolver so tests can supply fixed
// answers. The zero value is filled in from net.DefaultResolver.
type LookupFuncs struct {
	// NetIP resolves a hostname to addresses ("ip" network).
	NetIP func(ctx context.Context, network, host string) ([]netip.Addr, error)

	// Addr reverse-resolves an address to names.
	Addr func(ctx context.Context, addr string) ([]string, error)
}

// Resolver answers forward and reverse queries through its caches.
type Resolver struct {
	lookup  LookupFuncs
	forward *lruCache
	reverse *lruCache
}

// Option configures a Resolver.
type Option func(*Resolver, *int)

// WithCacheSize bounds each direction's cache to n entries.
func WithCacheSize(n int) Option {
	return func(_ *Resolver, size *int) {
		if n > 0 {
			*size = n
		}
	}
}

// WithLookupFuncs substitutes the underlying lookups, usually with canned
// answers in tests.
func WithLookupFuncs(funcs LookupFuncs) Option {
	return func(r *Resolver, _ *int) {
		if funcs.NetIP != nil {
			r.lookup.NetIP = funcs.NetIP
		}
		if funcs.Addr != nil {
			r.lookup.Addr = funcs.Addr
		}
	}
}

// NewResolver builds a caching resolver over net.DefaultResolver.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		lookup: LookupFuncs{
			NetIP: net.DefaultResolver.LookupNetIP,
			Addr: func(ctx context.Context, addr string) ([]string, error) {
				return net.DefaultResolver.LookupAddr(ctx, addr)
			},
		},
	}
	size := DefaultCacheSize
	for _, opt := range opts {
		opt(r, &size)
	}
	r.forward = newLRU(size)
	r.reverse = newLRU(size)
	return r
}

// ToAddress resolves a hostname to an address, preferring IPv4 over IPv6.
// A hostname that does not resolve yields ok false; the negative result is
// cached so the same dead name is not queried repeatedly.
func (r *Resolver) ToAddress(ctx context.Context, hostname string) (netip.Addr, bool) {
	if v, hit := r.forward.get(hostname); hit {
		addr, ok := v.(netip.Addr)
		return addr, ok
	}
	addrs, err := r.lookup.NetIP(ctx, "ip", hostname)
	var result netip.Addr
	found := false
	if err == nil {
		for _, a := range addrs {
			a = a.Unmap()
			if a.Is4() {
				result, found = a, true
				break
			}
			if !found {
				result, found = a, true
			}
		}
	}
	if found {
		r.forward.put(hostname, result)
	} else {
		r.forward.put(hostname, nil)
	}
	return result, found
}

// FromAddress reverse-resolves an address to a hostname. An address that
// does not reverse yields its own string form, matching what servers log
// when resolution fails.
func (r *Resolver) FromAddress(ctx context.Context, addr netip.Addr) string {
	key := addr.String()
	if v, hit := r.reverse.get(key); hit {
		return v.(string)
	}
	result := key
	if names, err := r.lookup.Addr(ctx, key); err == nil && len(names) > 0 {
		result = strings.TrimSuffix(names[0], ".")
	}
	r.reverse.put(key, result)
	return result
}

package storage

import "context"

// PrefixStore namespaces every key of an underlying Store. The companion
// server uses it to keep one user's snapshots apart from another's.
type PrefixStore struct {
	inner  Store
	prefix string
}

// WithPrefix wraps s. An empty prefix returns s unchanged.
func WithPrefix(s Store, prefix string) Store {
	if prefix == "" {
		return s
	}
	return &PrefixStore{inner: s, prefix: prefix}
}

func (p *PrefixStore) Get(ctx context.Context, key string) ([]byte, error) {
	return p.inner.Get(ctx, p.prefix+key)
}

func (p *PrefixStore) Set(ctx context.Context, key string, value []byte) error {
	return p.inner.Set(ctx, p.prefix+key, value)
}

func (p *PrefixStore) Remove(ctx context.Context, key string) error {
	return p.inner.Remove(ctx, p.prefix+key)
}

package cache

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
)

// LayeredCache reads through a fast tier and a shared tier, promoting shared hits into the fast
// tier. Shared tier failures are logged and treated as misses.
type LayeredCache struct {
	fast   Cache
	shared Cache
	logger *logrus.Logger
}

// NewLayeredCache combines two tiers. shared may be nil, in which case only fast is used.
func NewLayeredCache(fast, shared Cache, logger *logrus.Logger) *LayeredCache {
	return &LayeredCache{fast: fast, shared: shared, logger: logger}
}

// Get checks the fast tier first, then the shared tier.
func (c *LayeredCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, ok, err := c.fast.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if ok || c.shared == nil {
		return value, ok, nil
	}

	value, ok, err = c.shared.Get(ctx, key)
	if err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Shared cache tier unavailable, treating as miss")
		return nil, false, nil
	}
	if !ok {
		return nil, false, nil
	}

	if err := c.fast.Set(ctx, key, value); err != nil {
		c.logger.WithError(err).WithField("key", key).Debug("Failed to promote shared cache entry")
	}
	return value, true, nil
}

// Set writes to both tiers. A shared tier failure is logged and not returned.
func (c *LayeredCache) Set(ctx context.Context, key string, value []byte) error {
	if err := c.fast.Set(ctx, key, value); err != nil {
		return err
	}
	if c.shared == nil {
		return nil
	}
	if err := c.shared.Set(ctx, key, value); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Failed to write shared cache tier")
	}
	return nil
}

// Delete removes the key from both tiers.
func (c *LayeredCache) Delete(ctx context.Context, key string) error {
	err := c.fast.Delete(ctx, key)
	if c.shared != nil {
		err = errors.Join(err, c.shared.Delete(ctx, key))
	}
	return err
}

// Close closes both tiers.
func (c *LayeredCache) Close() error {
	err := c.fast.Close()
	if c.shared != nil {
		err = errors.Join(err, c.shared.Close())
	}
	return err
}

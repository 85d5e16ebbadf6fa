package adapter

import (
	"context"
	"net/url"
	"sync"

	"storefront/internal/pkg/logger"
	"storefront/internal/zookeeper"
)

// ZookeeperLockAdapter implements port.ProductLocker with one ZooKeeper lock per product,
// so order placements for the same product are serialized across service instances.
type ZookeeperLockAdapter struct {
	conn zookeeper.Conn
	root string
}

func NewZookeeperLockAdapter(conn zookeeper.Conn, root string) *ZookeeperLockAdapter {
	return &ZookeeperLockAdapter{conn: conn, root: root}
}

func (a *ZookeeperLockAdapter) Lock(ctx context.Context, productIDs []string) (func(), error) {
	held := make([]*zookeeper.DistributedLock, 0, len(productIDs))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			if err := held[i].Unlock(); err != nil {
				// the ephemeral node still goes away with the session
				logger.Ctx(ctx).Warn().Err(err).Msg("failed to release product lock")
			}
		}
	}

	for _, id := range productIDs {
		lock, err := zookeeper.NewDistributedLock(a.conn, a.root, lockNodeName(id))
		if err != nil {
			release()
			return nil, err
		}
		if err := lock.Lock(ctx); err != nil {
			release()
			return nil, err
		}
		held = append(held, lock)
	}

	var once sync.Once
	return func() { once.Do(release) }, nil
}

// lockNodeName keeps a product id to a single znode path segment.
func lockNodeName(productID string) string {
	return "product-" + url.PathEscape(productID)
}

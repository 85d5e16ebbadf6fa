// internal/zookeeper/lock.go
package zookeeper

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/go-zookeeper/zk"
	"github.com/pkg/errors"

	"storefront/internal/pkg/logger"
)

const (
	DefaultLockRoot    = "/distributed_locks" // 所有分布式锁的默认根节点
	defaultWaitTimeout = 30 * time.Second
	lockPrefix         = "lock-"
)

var ErrLockNodeLost = errors.New("zookeeper: lock node lost")

// Conn 是锁实现用到的 *zk.Conn 子集，测试中可以替换。
type Conn interface {
	Exists(path string) (bool, *zk.Stat, error)
	ExistsW(path string) (bool, *zk.Stat, <-chan zk.Event, error)
	Create(path string, data []byte, flags int32, acl []zk.ACL) (string, error)
	CreateProtectedEphemeralSequential(path string, data []byte, acl []zk.ACL) (string, error)
	Children(path string) ([]string, *zk.Stat, error)
	Delete(path string, version int32) error
}

// Connect 建立 ZooKeeper 会话，zk 客户端日志以 debug 级别输出到服务日志。
func Connect(servers []string, sessionTimeout time.Duration) (*zk.Conn, error) {
	conn, _, err := zk.Connect(servers, sessionTimeout, zk.WithLogger(zkLogger{}))
	if err != nil {
		return nil, errors.Wrap(err, "zookeeper connect")
	}
	return conn, nil
}

type zkLogger struct{}

func (zkLogger) Printf(format string, args ...interface{}) {
	logger.L().Debug().Str("component", "zookeeper").Msgf(format, args...)
}

// DistributedLock 定义了一个基于临时顺序节点的分布式锁对象。
// 序号最小的节点持有锁，其余节点只监听自己的前一个节点。
type DistributedLock struct {
	conn        Conn
	path        string // 锁的路径，例如 /distributed_locks/product-P1
	lockNode    string // 成功创建后，自己的节点路径
	waitTimeout time.Duration
}

// NewDistributedLock 创建一个新的分布式锁实例，并确保根节点和锁的父节点存在。
func NewDistributedLock(conn Conn, root, resourceID string) (*DistributedLock, error) {
	if root == "" {
		root = DefaultLockRoot
	}
	lockPath := root + "/" + resourceID
	for _, p := range []string{root, lockPath} {
		if err := ensureNode(conn, p); err != nil {
			return nil, err
		}
	}
	return &DistributedLock{conn: conn, path: lockPath, waitTimeout: defaultWaitTimeout}, nil
}

func ensureNode(conn Conn, path string) error {
	exists, _, err := conn.Exists(path)
	if err != nil {
		return errors.Wrapf(err, "check %s", path)
	}
	if exists {
		return nil
	}
	_, err = conn.Create(path, []byte(""), 0, zk.WorldACL(zk.PermAll))
	if err != nil && !errors.Is(err, zk.ErrNodeExists) {
		return errors.Wrapf(err, "create %s", path)
	}
	return nil
}

// Lock 尝试获取锁，获取不到则阻塞等待，直到 ctx 结束或等待超时。
func (l *DistributedLock) Lock(ctx context.Context) error {
	if l.waitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.waitTimeout)
		defer cancel()
	}

	// 1. 在锁路径下创建一个临时顺序节点
	node, err := l.conn.CreateProtectedEphemeralSequential(l.path+"/"+lockPrefix, []byte(""), zk.WorldACL(zk.PermAll))
	if err != nil {
		return errors.Wrap(err, "create sequential node")
	}
	l.lockNode = node
	myName := strings.TrimPrefix(node, l.path+"/")

	for {
		// 2. 获取锁路径下的所有子节点，按序号排序
		children, _, err := l.conn.Children(l.path)
		if err != nil {
			l.abandon()
			return errors.Wrap(err, "list lock children")
		}
		sortBySequence(children)

		// 3. 判断自己是否是最小的节点
		idx := indexOf(children, myName)
		if idx < 0 {
			l.lockNode = ""
			return ErrLockNodeLost
		}
		if idx == 0 {
			return nil
		}

		// 4. 不是最小节点，监听前一个节点
		exists, _, events, err := l.conn.ExistsW(l.path + "/" + children[idx-1])
		if err != nil {
			l.abandon()
			return errors.Wrap(err, "watch previous node")
		}
		if !exists {
			continue // 前一个节点刚好被删除，重新竞争
		}
		select {
		case <-events:
		case <-ctx.Done():
			l.abandon()
			return ctx.Err()
		}
	}
}

// Unlock 释放锁；未持有时调用是空操作。
func (l *DistributedLock) Unlock() error {
	if l.lockNode == "" {
		return nil
	}
	err := l.conn.Delete(l.lockNode, -1)
	if err != nil && !errors.Is(err, zk.ErrNoNode) {
		return errors.Wrap(err, "delete lock node")
	}
	l.lockNode = ""
	return nil
}

func (l *DistributedLock) abandon() {
	if err := l.Unlock(); err != nil {
		logger.L().Warn().Err(err).Str("path", l.path).Msg("failed to remove abandoned lock node")
	}
}

// sortBySequence 按序号后缀排序。protected 节点带有随机前缀，不能直接按字典序排。
func sortBySequence(children []string) {
	sort.SliceStable(children, func(i, j int) bool {
		return sequenceOf(children[i]) < sequenceOf(children[j])
	})
}

func sequenceOf(name string) string {
	if i := strings.LastIndex(name, lockPrefix); i >= 0 {
		return name[i+len(lockPrefix):]
	}
	return name
}

func indexOf(children []string, name string) int {
	for i, c := range children {
		if c == name {
			return i
		}
	}
	return -1
}

package breaker

import (
	"context"
	"encoding/json"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/ceyewan/tripwire/clog"
	"github.com/ceyewan/tripwire/xerrors"
)

// etcdStore etcd 状态存储（分布式模式）。
// 每个 serviceID 对应一个 JSON 值，版本号复用 etcd 的 ModRevision，
// 条件写入通过 Txn 的 revision 比较实现。
type etcdStore struct {
	client *clientv3.Client
	prefix string
	logger clog.Logger
}

func newEtcdStore(client *clientv3.Client, prefix string, logger clog.Logger) *etcdStore {
	return &etcdStore{
		client: client,
		prefix: prefix,
		logger: logger,
	}
}

func (s *etcdStore) key(serviceID string) string {
	return s.prefix + serviceID
}

func (s *etcdStore) Read(ctx context.Context, serviceID string) (*Record, error) {
	resp, err := s.client.Get(ctx, s.key(serviceID))
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to read breaker record",
			clog.String("service_id", serviceID),
			clog.Error(err))
		return nil, xerrors.Wrapf(ErrStoreUnavailable, "etcd read: %v", err)
	}
	if len(resp.Kvs) == 0 {
		return newRecord(), nil
	}

	rec := newRecord()
	if err := json.Unmarshal(resp.Kvs[0].Value, rec); err != nil {
		return nil, xerrors.Wrapf(ErrStoreUnavailable, "corrupt record: %v", err)
	}
	rec.Version = resp.Kvs[0].ModRevision
	return rec, nil
}

func (s *etcdStore) CompareAndSwap(ctx context.Context, serviceID string, expectedVersion int64, rec *Record) error {
	value, err := json.Marshal(rec)
	if err != nil {
		return xerrors.Wrap(err, "marshal record")
	}

	key := s.key(serviceID)

	// expectedVersion 为 0 表示记录尚不存在，用 CreateRevision 判断
	var cmp clientv3.Cmp
	if expectedVersion == 0 {
		cmp = clientv3.Compare(clientv3.CreateRevision(key), "=", 0)
	} else {
		cmp = clientv3.Compare(clientv3.ModRevision(key), "=", expectedVersion)
	}

	resp, err := s.client.Txn(ctx).If(cmp).Then(clientv3.OpPut(key, string(value))).Commit()
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to commit cas txn",
			clog.String("service_id", serviceID),
			clog.Error(err))
		return xerrors.Wrapf(ErrStoreUnavailable, "etcd cas: %v", err)
	}
	if !resp.Succeeded {
		return ErrVersionConflict
	}

	// Txn 提交后的集群 revision 即本次 Put 的 ModRevision
	rec.Version = resp.Header.Revision
	return nil
}

func (s *etcdStore) Delete(ctx context.Context, serviceID string) error {
	if _, err := s.client.Delete(ctx, s.key(serviceID)); err != nil {
		return xerrors.Wrapf(ErrStoreUnavailable, "etcd delete: %v", err)
	}
	return nil
}

// Close 连接由 Connector 管理，不在此关闭
func (s *etcdStore) Close() error {
	return nil
}

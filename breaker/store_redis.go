package breaker

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ceyewan/tripwire/clog"
	"github.com/ceyewan/tripwire/xerrors"
)

// casScript 版本比较条件写入的 Lua 脚本
//
// 版本检查与字段写入在同一脚本内完成，Redis 单线程执行模型保证原子性。
// 记录不存在时当前版本视为 0。
const casScript = `
-- KEYS[1]: 熔断记录的 Hash 键
-- ARGV[1]: 期望版本号
-- ARGV[2..7]: state, failure_count, last_failure_time,
--             last_state_change_time, probe_owner, probe_expiry
local current = redis.call("HGET", KEYS[1], "version")
if current == false then
  current = "0"
end
if current ~= ARGV[1] then
  return 0
end
redis.call("HSET", KEYS[1],
  "state", ARGV[2],
  "failure_count", ARGV[3],
  "last_failure_time", ARGV[4],
  "last_state_change_time", ARGV[5],
  "probe_owner", ARGV[6],
  "probe_expiry", ARGV[7],
  "version", tostring(tonumber(ARGV[1]) + 1))
return 1
`

// redisStore Redis 状态存储（分布式模式）。
// 每个 serviceID 对应一个 Hash，版本字段由 Lua 脚本维护。
type redisStore struct {
	client *redis.Client
	prefix string
	logger clog.Logger
	script *redis.Script
}

func newRedisStore(client *redis.Client, prefix string, logger clog.Logger) *redisStore {
	return &redisStore{
		client: client,
		prefix: prefix,
		logger: logger,
		script: redis.NewScript(casScript),
	}
}

func (s *redisStore) key(serviceID string) string {
	return s.prefix + serviceID
}

func (s *redisStore) Read(ctx context.Context, serviceID string) (*Record, error) {
	fields, err := s.client.HGetAll(ctx, s.key(serviceID)).Result()
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to read breaker record",
			clog.String("service_id", serviceID),
			clog.Error(err))
		return nil, xerrors.Wrapf(ErrStoreUnavailable, "redis read: %v", err)
	}
	if len(fields) == 0 {
		return newRecord(), nil
	}
	return parseRecord(fields)
}

func (s *redisStore) CompareAndSwap(ctx context.Context, serviceID string, expectedVersion int64, rec *Record) error {
	result, err := s.script.Run(ctx, s.client, []string{s.key(serviceID)},
		strconv.FormatInt(expectedVersion, 10),
		string(rec.State),
		strconv.Itoa(rec.FailureCount),
		formatTime(rec.LastFailureTime),
		formatTime(rec.LastStateChangeTime),
		rec.ProbeOwner,
		formatTime(rec.ProbeExpiry),
	).Int64()
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to execute cas script",
			clog.String("service_id", serviceID),
			clog.Error(err))
		return xerrors.Wrapf(ErrStoreUnavailable, "redis cas: %v", err)
	}
	if result != 1 {
		return ErrVersionConflict
	}

	rec.Version = expectedVersion + 1
	return nil
}

func (s *redisStore) Delete(ctx context.Context, serviceID string) error {
	if err := s.client.Del(ctx, s.key(serviceID)).Err(); err != nil {
		return xerrors.Wrapf(ErrStoreUnavailable, "redis delete: %v", err)
	}
	return nil
}

// Close 连接由 Connector 管理，不在此关闭
func (s *redisStore) Close() error {
	return nil
}

// parseRecord 从 Hash 字段还原熔断记录
func parseRecord(fields map[string]string) (*Record, error) {
	rec := newRecord()

	if v, ok := fields["state"]; ok && v != "" {
		rec.State = State(v)
	}
	if v, ok := fields["failure_count"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, xerrors.Wrapf(ErrStoreUnavailable, "corrupt failure_count %q", v)
		}
		rec.FailureCount = n
	}
	if v, ok := fields["version"]; ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, xerrors.Wrapf(ErrStoreUnavailable, "corrupt version %q", v)
		}
		rec.Version = n
	}
	rec.LastFailureTime = parseTime(fields["last_failure_time"])
	rec.LastStateChangeTime = parseTime(fields["last_state_change_time"])
	rec.ProbeOwner = fields["probe_owner"]
	rec.ProbeExpiry = parseTime(fields["probe_expiry"])

	return rec, nil
}

// formatTime 时间序列化为 Unix 纳秒字符串，零值记为 "0"
func formatTime(t time.Time) string {
	if t.IsZero() {
		return "0"
	}
	return strconv.FormatInt(t.UnixNano(), 10)
}

func parseTime(s string) time.Time {
	if s == "" || s == "0" {
		return time.Time{}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(0, n)
}

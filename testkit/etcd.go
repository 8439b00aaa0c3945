package testkit

import (
	"context"
	"os"
	"testing"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/ceyewan/tripwire/connector"
)

// GetEtcdConfig 返回 etcd 测试配置
// 默认连接 localhost:2379，可通过 TRIPWIRE_TEST_ETCD_ENDPOINT 环境变量覆盖
func GetEtcdConfig() *connector.EtcdConfig {
	endpoint := os.Getenv("TRIPWIRE_TEST_ETCD_ENDPOINT")
	if endpoint == "" {
		endpoint = "localhost:2379"
	}
	return &connector.EtcdConfig{
		Name:        "test-etcd",
		Endpoints:   []string{endpoint},
		DialTimeout: 5 * time.Second,
	}
}

// GetEtcdConnector 获取 etcd 连接器，etcd 不可达时跳过测试
func GetEtcdConnector(t *testing.T) connector.EtcdConnector {
	cfg := GetEtcdConfig()
	conn, err := connector.NewEtcd(cfg, connector.WithLogger(NewLogger()))
	if err != nil {
		t.Fatalf("failed to create etcd connector: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.Connect(ctx); err != nil {
		t.Skipf("etcd not available at %v: %v", cfg.Endpoints, err)
	}
	t.Cleanup(func() {
		_ = conn.Close()
	})

	return conn
}

// GetEtcdClient 获取原生 etcd 客户端
func GetEtcdClient(t *testing.T) *clientv3.Client {
	return GetEtcdConnector(t).GetClient()
}

package breaker

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// KeyFunc 从 gRPC 调用上下文中提取熔断的服务标识
type KeyFunc func(ctx context.Context, fullMethod string, cc *grpc.ClientConn) string

// ServiceLevelKey 服务级别标识：以连接目标作为熔断维度
// 返回示例: "etcd:///payment-service"
func ServiceLevelKey() KeyFunc {
	return func(ctx context.Context, fullMethod string, cc *grpc.ClientConn) string {
		return cc.Target()
	}
}

// MethodLevelKey 方法级别标识：按方法单独熔断
// 返回示例: "/pkg.Service/Method"
func MethodLevelKey() KeyFunc {
	return func(ctx context.Context, fullMethod string, cc *grpc.ClientConn) string {
		return fullMethod
	}
}

// UnaryClientInterceptor 返回 gRPC 一元调用客户端拦截器
// 为每个 gRPC 调用提供熔断保护
//
// 参数:
//   - gate: 熔断器实例
//   - keyFunc: 服务标识提取函数，如果为 nil，默认使用服务级别标识
//
// 请求被熔断拒绝时返回 codes.Unavailable。
//
// 使用示例:
//
//	gate, _ := breaker.NewStandalone(cfg, breaker.WithLogger(logger))
//	conn, _ := grpc.NewClient(
//	    "localhost:9001",
//	    grpc.WithUnaryInterceptor(breaker.UnaryClientInterceptor(gate, nil)),
//	)
func UnaryClientInterceptor(gate Gate, keyFunc KeyFunc) grpc.UnaryClientInterceptor {
	if keyFunc == nil {
		keyFunc = ServiceLevelKey()
	}

	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		serviceID := keyFunc(ctx, method, cc)

		decision, err := gate.Evaluate(ctx, serviceID)
		if !decision.Allowed {
			if err != nil {
				return status.Error(codes.Unavailable, ErrStoreUnavailable.Error())
			}
			return status.Error(codes.Unavailable, ErrOpenState.Error())
		}

		callErr := invoker(ctx, method, req, reply, cc, opts...)
		_ = gate.Report(ctx, serviceID, classifyGRPC(callErr), decision.ProbeToken)
		return callErr
	}
}

// StreamClientInterceptor 返回 gRPC 流式调用客户端拦截器
// 熔断判定基于流的建立结果，流建立后的消息收发不再触达熔断器
//
// 使用示例:
//
//	conn, _ := grpc.NewClient(
//	    "localhost:9001",
//	    grpc.WithStreamInterceptor(breaker.StreamClientInterceptor(gate, nil)),
//	)
func StreamClientInterceptor(gate Gate, keyFunc KeyFunc) grpc.StreamClientInterceptor {
	if keyFunc == nil {
		keyFunc = ServiceLevelKey()
	}

	return func(ctx context.Context, desc *grpc.StreamDesc, cc *grpc.ClientConn, method string, streamer grpc.Streamer, opts ...grpc.CallOption) (grpc.ClientStream, error) {
		serviceID := keyFunc(ctx, method, cc)

		decision, err := gate.Evaluate(ctx, serviceID)
		if !decision.Allowed {
			if err != nil {
				return nil, status.Error(codes.Unavailable, ErrStoreUnavailable.Error())
			}
			return nil, status.Error(codes.Unavailable, ErrOpenState.Error())
		}

		stream, callErr := streamer(ctx, desc, cc, method, opts...)
		_ = gate.Report(ctx, serviceID, classifyGRPC(callErr), decision.ProbeToken)
		return stream, callErr
	}
}

// classifyGRPC 按 gRPC 状态码归类调用结果。
// 只有基础设施类故障计入失败，业务错误（参数非法、资源不存在等）
// 不应触发熔断。
func classifyGRPC(err error) Outcome {
	if err == nil {
		return OutcomeSuccess
	}
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.Internal,
		codes.ResourceExhausted, codes.Unknown:
		return OutcomeFailure
	default:
		return OutcomeSuccess
	}
}

package rpc

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// RequestIDKey is the metadata key carrying the request id.
const RequestIDKey = "x-request-id"

type requestIDCtxKey struct{}

// RequestID returns the id assigned by the logging interceptor.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDCtxKey{}).(string)
	return id
}

func requestID(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if ids := md.Get(RequestIDKey); len(ids) > 0 && ids[0] != "" {
			return ids[0]
		}
	}
	return uuid.New().String()
}

// UnaryLogging tags every call with a request id (taken from incoming
// metadata or generated), echoes it in the response header and logs the
// outcome.
func UnaryLogging(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		id := requestID(ctx)
		ctx = context.WithValue(ctx, requestIDCtxKey{}, id)
		_ = grpc.SetHeader(ctx, metadata.Pairs(RequestIDKey, id))

		resp, err := handler(ctx, req)

		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.String("request_id", id),
			zap.Duration("duration", time.Since(start)),
			zap.Stringer("code", status.Code(err)),
		}
		if err != nil {
			fields = append(fields, zap.Error(err))
		}
		log.Info("gRPC request finished", fields...)
		return resp, err
	}
}

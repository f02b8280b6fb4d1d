package grpc

import (
	"context"
	"time"

	"shop-service/internal/service"
	"shop-service/internal/transport/http/middleware"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

var publicMethods = map[string]struct{}{
	"/grpc.health.v1.Health/Check":                                   {},
	"/grpc.health.v1.Health/Watch":                                   {},
	"/grpc.health.v1.Health/List":                                    {},
	"/grpc.reflection.v1alpha.ServerReflection/ServerReflectionInfo": {},
	"/grpc.reflection.v1.ServerReflection/ServerReflectionInfo":      {},
}

// NewAuthUnaryServerInterceptor пропускает health и reflection без токена,
// остальным методам нужен валидный Bearer в metadata authorization.
func NewAuthUnaryServerInterceptor(parser *middleware.TokenParser) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if _, ok := publicMethods[info.FullMethod]; ok {
			return handler(ctx, req)
		}

		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Errorf(codes.Unauthenticated, "missing metadata (method=%s)", info.FullMethod)
		}
		access, ok := middleware.ExtractBearerToken(getFirst(md, "authorization"))
		if !ok || access == "" {
			return nil, status.Error(codes.Unauthenticated, "invalid authorization header")
		}

		id, err := parser.Parse(access)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, "invalid or expired token")
		}

		ctx = service.WithUserID(ctx, id.UserID)
		ctx = service.WithRole(ctx, id.Role)
		if id.Email != "" {
			ctx = service.WithEmail(ctx, id.Email)
		}
		return handler(ctx, req)
	}
}

// NewLoggingUnaryServerInterceptor логирует вызов и превращает панику в codes.Internal
func NewLoggingUnaryServerInterceptor(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		start := time.Now()
		defer func() {
			if r := recover(); r != nil {
				log.Error("gRPC panic", zap.String("method", info.FullMethod), zap.Any("panic", r))
				resp, err = nil, status.Error(codes.Internal, "internal error")
			}
			fields := []zap.Field{
				zap.String("method", info.FullMethod),
				zap.Duration("took", time.Since(start)),
				zap.String("code", status.Code(err).String()),
			}
			if err != nil {
				log.Warn("gRPC call failed", append(fields, zap.Error(err))...)
				return
			}
			log.Debug("gRPC call", fields...)
		}()
		return handler(ctx, req)
	}
}

func getFirst(md metadata.MD, key string) string {
	if vals := md.Get(key); len(vals) > 0 {
		return vals[0]
	}
	return ""
}

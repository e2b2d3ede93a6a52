package server

import (
	"go.uber.org/zap"
	"google.golang.org/grpc"

	grpcadapter "user-query-service/internal/adapter/grpc"
	"user-query-service/internal/adapter/grpc/middleware"
	"user-query-service/internal/usecase/user"
	"user-query-service/pkg/logger"
)

// SetupGRPC creates and configures the gRPC server
func SetupGRPC(userUC user.Usecase, l *zap.Logger, rateLimiter *middleware.RateLimiter) *grpc.Server {
	// Request ID first so rate limit rejections are tagged too
	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			logger.RequestIDInterceptor(),
			rateLimiter.UnaryInterceptor(),
		),
	)
	grpcadapter.Register(grpcServer, grpcadapter.NewQueryServiceServer(userUC, l))

	return grpcServer
}

package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	ginhandler "user-query-service/internal/adapter/gin/handler"
	ginmiddleware "user-query-service/internal/adapter/gin/middleware"
	"user-query-service/internal/adapter/grpc/middleware"
	"user-query-service/internal/config"
	"user-query-service/internal/usecase/user"
	redisclient "user-query-service/pkg/redis"
)

// Server struct holds all server dependencies
type Server struct {
	Config *config.Config
	Logger *zap.Logger
	GRPC   *grpc.Server
	Gin    *http.Server

	stopping chan struct{}
	stopOnce sync.Once
}

// New creates a new server instance
func New(
	cfg *config.Config,
	l *zap.Logger,
	userUC user.Usecase,
	rateLimiter *middleware.RateLimiter,
	ginLimiter ginmiddleware.TokenBucketConfig,
	ginHandler *ginhandler.UserHandler,
	redisClient *redisclient.Client,
) *Server {
	return &Server{
		Config:   cfg,
		Logger:   l,
		GRPC:     SetupGRPC(userUC, l, rateLimiter),
		Gin:      SetupGinServer(ginHandler, ginLimiter, redisClient.Client, cfg.Logger.ServiceName, ginAddress(cfg), l),
		stopping: make(chan struct{}),
	}
}

// Start listens on the configured ports and serves until both servers stop
func (s *Server) Start(ctx context.Context) error {
	lc := net.ListenConfig{}

	grpcLis, err := lc.Listen(ctx, "tcp", grpcAddress(s.Config))
	if err != nil {
		return fmt.Errorf("failed to listen on gRPC address: %w", err)
	}

	ginLis, err := lc.Listen(ctx, "tcp", s.Gin.Addr)
	if err != nil {
		_ = grpcLis.Close()
		return fmt.Errorf("failed to listen on Gin address: %w", err)
	}

	return s.Serve(grpcLis, ginLis)
}

// Serve runs the gRPC and Gin servers on the given listeners.
// It returns the first serve error, or nil once both servers are shut down.
// When one server fails the other is stopped immediately.
func (s *Server) Serve(grpcLis, ginLis net.Listener) error {
	g, ctx := errgroup.WithContext(context.Background())

	g.Go(func() error {
		s.Logger.Info("gRPC server running", zap.String("address", grpcLis.Addr().String()))
		if err := s.GRPC.Serve(grpcLis); err != nil {
			return fmt.Errorf("failed to start gRPC server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		s.Logger.Info("Gin REST API running", zap.String("address", ginLis.Addr().String()))
		if err := s.Gin.Serve(ginLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start Gin server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		select {
		case <-ctx.Done():
			s.Logger.Error("server failed, stopping the other one")
			s.GRPC.Stop()
			_ = s.Gin.Close()
		case <-s.stopping:
		}
		return nil
	})

	return g.Wait()
}

// Shutdown stops both servers, waiting for in-flight requests until ctx expires
func (s *Server) Shutdown(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stopping) })

	var errs []error

	if s.Gin != nil {
		s.Logger.Info("shutting down Gin server...")
		if err := s.Gin.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("gin shutdown: %w", err))
		}
	}

	if s.GRPC != nil {
		s.Logger.Info("shutting down gRPC server...")
		stopped := make(chan struct{})
		go func() {
			s.GRPC.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-ctx.Done():
			s.GRPC.Stop()
			errs = append(errs, fmt.Errorf("grpc shutdown: %w", ctx.Err()))
		}
	}

	return errors.Join(errs...)
}

func grpcAddress(cfg *config.Config) string {
	return ":" + cfg.App.GRPCPort
}

func ginAddress(cfg *config.Config) string {
	return ":" + cfg.App.GinPort
}

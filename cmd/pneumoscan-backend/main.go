package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/example/pneumoscan/internal/config"
	"github.com/example/pneumoscan/internal/devbackend"
	"github.com/example/pneumoscan/internal/logging"
)

func main() {
	cfg := config.LoadBackend()

	logger, err := logging.NewLogger(cfg.Debug)
	if err != nil {
		panic(err)
	}
	defer logger.Sync() //nolint:errcheck

	var cache devbackend.Cache
	if cfg.RedisAddr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		redisClient := initRedis(ctx, cfg.RedisAddr, logger)
		cancel()
		defer redisClient.Close()
		cache = devbackend.NewRedisCache(redisClient)
	}

	svc := devbackend.NewService(devbackend.NewRandomPredictor(nil, time.Second), cache, cfg.DemoMode, logger)

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.MaxMultipartMemory = devbackend.MaxUploadSize

	var authMiddleware gin.HandlerFunc
	if cfg.JWTSecret != "" {
		authMiddleware = devbackend.JWTMiddleware(cfg.JWTSecret, cfg.JWTAudience)
	}
	devbackend.RegisterRoutes(r, svc, authMiddleware, logger)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("development backend listening",
		zap.String("addr", cfg.Addr),
		zap.Bool("demo_mode", cfg.DemoMode),
		zap.Bool("redis_cache", cache != nil),
		zap.Bool("auth", authMiddleware != nil),
	)
	if err := serveHTTPServer(server, 15*time.Second, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func initRedis(ctx context.Context, addr string, logger *zap.Logger) *redis.Client {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Fatal("redis connection failed", zap.Error(err), zap.String("addr", addr))
	}
	return client
}

func serveHTTPServer(server *http.Server, shutdownTimeout time.Duration, logger *zap.Logger) error {
	return serveHTTPServerWithOptions(server, shutdownTimeout, logger, nil, nil)
}

func serveHTTPServerWithOptions(server *http.Server, shutdownTimeout time.Duration, logger *zap.Logger, listener net.Listener, signalCh <-chan os.Signal) error {
	errCh := make(chan error, 1)
	go func() {
		var err error
		if listener != nil {
			err = server.Serve(listener)
		} else {
			err = server.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	sigCh := signalCh
	if sigCh == nil {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(ch)
		sigCh = ch
	}

	select {
	case err := <-errCh:
		return err
	case sig, ok := <-sigCh:
		if !ok {
			return <-errCh
		}
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return <-errCh
	}
}

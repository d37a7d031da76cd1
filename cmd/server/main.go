package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"leasing-site-api/internal/app"
	"leasing-site-api/internal/auth"
	"leasing-site-api/internal/cache"
	"leasing-site-api/internal/config"
	"leasing-site-api/internal/grpcweb"
	"leasing-site-api/internal/handler"
	"leasing-site-api/internal/i18n"
	"leasing-site-api/internal/logger"
	"leasing-site-api/internal/middleware"
	"leasing-site-api/internal/ops"
	"leasing-site-api/internal/store"
	"leasing-site-api/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	defer log.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry, log)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}

	// database
	if cfg.Database.Migrate {
		if err := store.Migrate(cfg.Database.URL, log); err != nil {
			return err
		}
	}
	pool, err := store.Connect(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		return err
	}
	defer pool.Close()
	log.Info("connected to postgres")
	st := store.New(pool)

	var kv cache.Cache = cache.NewMemory()
	if cfg.Redis.URL != "" {
		r, err := cache.NewRedis(ctx, cfg.Redis.URL)
		if err != nil {
			return err
		}
		kv = r
		log.Info("using redis cache")
	}
	defer kv.Close()

	catalog, err := i18n.Load(cfg.I18n.Locales, cfg.I18n.DefaultLocale)
	if err != nil {
		return err
	}
	tokens := auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.AccessTTL)

	deps := handler.Deps{
		DB:           st,
		Auth:         st,
		Bookings:     st,
		Analytics:    st,
		Content:      st,
		Media:        st,
		Users:        st,
		Translations: st,
		DataSources:  st,
		Tokens:       tokens,
		Catalog:      catalog,
		Cache:        kv,
		Log:          log,
		Options: handler.Options{
			SiteURL:           cfg.Server.SiteURL,
			Production:        cfg.IsProduction(),
			RefreshTTL:        cfg.Auth.RefreshTTL,
			CookieDomain:      cfg.Auth.CookieDomain,
			CookieSecure:      cfg.Auth.CookieSecure,
			BookingTemplateID: cfg.Email.BookingTemplateID,
			ContactTemplateID: cfg.Email.ContactTemplateID,
			ContactRecipient:  cfg.Email.ContactRecipient,
		},
	}
	app.NewIntegrations(ctx, cfg, log).Apply(&deps)
	h := handler.New(deps)

	rl := middleware.NewRateLimiter(cfg.Auth.RateLimitRPS, cfg.Auth.RateLimitBurst)

	// grpc ops service
	grpcSrv, _ := ops.NewGRPCServer(st, ops.ServerOptions{
		Tokens:  tokens,
		Admins:  st,
		Limiter: rl,
		Log:     log,
	})
	lis, err := net.Listen("tcp", ":"+cfg.Server.GRPCPort)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	// grpc-web bridge -> forwards browser requests to grpc on localhost
	bridge, err := grpcweb.New("localhost:"+cfg.Server.GRPCPort, "/"+ops.ServiceName+"/", log)
	if err != nil {
		return fmt.Errorf("bridge: %w", err)
	}
	defer bridge.Close()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	origins := cfg.Server.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{cfg.Server.SiteURL}
	}
	router := handler.NewRouter(h, handler.RouterConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Log:         log,
		Limiter:     rl,
		CORSOrigins: origins,
		Tokens:      tokens,
		Admins:      st,
		GRPCWeb:     bridge.Handler(),
		GRPCService: ops.ServiceName,
	})
	httpSrv := &http.Server{
		Addr:              ":" + cfg.Server.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rl.Run(gctx, time.Minute)
		return nil
	})
	g.Go(func() error {
		log.Info("grpc listening", zap.String("port", cfg.Server.GRPCPort))
		return grpcSrv.Serve(lis)
	})
	g.Go(func() error {
		log.Info("http listening", zap.String("port", cfg.Server.HTTPPort))
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		err := httpSrv.Shutdown(sctx)
		grpcSrv.GracefulStop()
		h.Wait()
		if terr := shutdownTracing(sctx); terr != nil {
			log.Warn("tracer shutdown", zap.Error(terr))
		}
		return err
	})
	return g.Wait()
}

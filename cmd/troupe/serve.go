package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecgard/troupe/internal/account"
	"github.com/alecgard/troupe/internal/api"
	"github.com/alecgard/troupe/internal/career"
	"github.com/alecgard/troupe/internal/claim"
	"github.com/alecgard/troupe/internal/config"
	"github.com/alecgard/troupe/internal/crypto"
	"github.com/alecgard/troupe/internal/logging"
	"github.com/alecgard/troupe/internal/metrics"
	"github.com/alecgard/troupe/internal/notification"
	"github.com/alecgard/troupe/internal/ordering"
	"github.com/alecgard/troupe/internal/permission"
	"github.com/alecgard/troupe/internal/proposal"
	"github.com/alecgard/troupe/internal/ratelimit"
	"github.com/alecgard/troupe/internal/team"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Troupe API server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	logger, logCloser, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer logCloser.Close()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := openPool(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()
	slog.Info("connected to database", "max_conns", pool.Config().MaxConns)

	m := metrics.New()
	m.RegisterDBPoolCollector(func() metrics.PoolStats {
		s := pool.Stat()
		return metrics.PoolStats{
			Total:        s.TotalConns(),
			Idle:         s.IdleConns(),
			Acquired:     s.AcquiredConns(),
			Max:          s.MaxConns(),
			EmptyAcquire: s.EmptyAcquireCount(),
		}
	})

	cipher, err := crypto.NewCipher(cfg.Encryption.Key)
	if err != nil {
		return fmt.Errorf("loading encryption key: %w", err)
	}
	if !cipher.Enabled() {
		slog.Warn("no encryption key configured; proposal contact fields are stored in plaintext")
	}

	accounts := account.NewStore(pool, cfg.Auth.SessionTTL)
	careers := career.NewStore(pool)
	teams := team.NewStore(pool)
	proposals := proposal.NewStore(pool, cipher)
	notes := notification.NewStore(pool)
	perms := permission.NewStore(pool)

	claims := claim.NewService(claim.Stores{
		Accounts:  accounts,
		Careers:   careers,
		Teams:     teams,
		Proposals: proposals,
		Notes:     notes,
	}, logger, m)

	orderOpts := []ordering.Option{ordering.WithObserver(m)}
	if cfg.Cache.RedisURL != "" {
		rc, err := openRedis(ctx, cfg.Cache.RedisURL)
		if err != nil {
			return err
		}
		defer rc.Close()
		orderOpts = append(orderOpts, ordering.WithCache(ordering.NewRedisCache(rc, cfg.Cache.ListingKey, cfg.Cache.TTL)))
		slog.Info("display order cache enabled", "key", cfg.Cache.ListingKey, "ttl", cfg.Cache.TTL)
	}
	orders := ordering.NewService(ordering.NewStore(pool), accounts, teams, logger, orderOpts...)

	if created, err := orders.EnsureInitialized(ctx); err != nil {
		slog.Warn("display order initialization failed", "error", err)
	} else if created {
		slog.Info("display order initialized from current artists and teams")
	}

	claimLimiter := ratelimit.New(cfg.RateLimit.Claim.Rate, cfg.RateLimit.Claim.Window)
	loginLimiter := ratelimit.New(cfg.RateLimit.Login.Rate, cfg.RateLimit.Login.Window)

	router := api.NewRouter(api.RouterDeps{
		Accounts:       accounts,
		Careers:        careers,
		Teams:          teams,
		Proposals:      proposals,
		Notifications:  notes,
		Permissions:    perms,
		Claims:         claims,
		Orders:         orders,
		Sessions:       account.NewAuthAdapter(accounts),
		Metrics:        m,
		ClaimLimiter:   claimLimiter,
		LoginLimiter:   loginLimiter,
		DB:             pool,
		Logger:         logger,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		runCleanup(gctx, cfg.Auth.CleanupInterval, accounts, claimLimiter, loginLimiter)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func openPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return pool, nil
}

func openRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rc := redis.NewClient(opts)
	if err := rc.Ping(ctx).Err(); err != nil {
		rc.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return rc, nil
}

// runCleanup drops expired sessions and idle rate limit buckets until ctx
// is done.
func runCleanup(ctx context.Context, every time.Duration, accounts *account.Store, limiters ...*ratelimit.Limiter) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := accounts.CleanExpiredSessions(ctx)
			if err != nil {
				slog.Warn("session cleanup failed", "error", err)
			} else if n > 0 {
				slog.Info("expired sessions removed", "count", n)
			}
			pruned := 0
			for _, l := range limiters {
				pruned += l.Prune()
			}
			if pruned > 0 {
				slog.Debug("rate limit buckets pruned", "count", pruned)
			}
		}
	}
}

package main

import (
	"KidQuest/config"
	"KidQuest/controllers"
	"KidQuest/interfaces"
	"KidQuest/middlewares"
	"KidQuest/pkg/logger"
	"KidQuest/repositories"
	"KidQuest/repositories/impl"
	"KidQuest/repositories/memory"
	"KidQuest/routes"
	"KidQuest/services"
	"KidQuest/websocket"
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

// секрет только для локальной разработки без JWT_SECRET
const developmentJWTSecret = "kidquest-development-secret"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// configFlags is attached to the app and to every command, so overrides
// work both before and after the command name.
func configFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "port", Aliases: []string{"p"}, Usage: "HTTP port"},
		&cli.BoolFlag{Name: "development", Aliases: []string{"D"}, Usage: "Development mode"},
		&cli.StringFlag{Name: "db-host", Aliases: []string{"t"}, Usage: "Postgres host (empty: in-memory store)"},
		&cli.IntFlag{Name: "db-port", Aliases: []string{"P"}, Usage: "Postgres port"},
		&cli.StringFlag{Name: "db-user", Aliases: []string{"u"}, Usage: "Postgres user"},
		&cli.StringFlag{Name: "db-password", Usage: "Postgres password"},
		&cli.StringFlag{Name: "db-name", Aliases: []string{"d"}, Usage: "Postgres database name"},
		&cli.StringFlag{Name: "jwt-secret", Usage: "HMAC secret for parent tokens"},
		&cli.StringFlag{Name: "firebase-credentials", Usage: "Path to Firebase service account JSON"},
		&cli.DurationFlag{Name: "spend-request-ttl", Usage: "How long a spend request may stay pending"},
		&cli.DurationFlag{Name: "sweep-interval", Usage: "Interval between maintenance sweeps"},
		&cli.IntFlag{Name: "tx-max-retries", Usage: "Attempts for a transaction aborted by the store"},
		&cli.Int64Flag{Name: "task-xp", Usage: "XP credited per completed task"},
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "kidquest",
		Usage: "Device sessions and XP rewards for supervised children",
		Flags: configFlags(),
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API, websocket hub and sweeper",
				Flags:  configFlags(),
				Action: serve,
			},
			{
				Name:   "sweep",
				Usage:  "Expire stale spend requests and elapsed sessions once, then exit",
				Flags:  configFlags(),
				Action: sweep,
			},
		},
		DefaultCommand: "serve",
	}
}

// flagSource returns the nearest context in which name was given, or nil.
// A command context shadows the app one for lookups, so each level is asked separately.
func flagSource(c *cli.Context, name string) *cli.Context {
	for _, ctx := range c.Lineage() {
		if ctx.IsSet(name) {
			return ctx
		}
	}
	return nil
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	// Load configuration from environment variables
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Override with flags if set
	if fc := flagSource(c, "port"); fc != nil {
		cfg.Port = fc.String("port")
	}
	if fc := flagSource(c, "development"); fc != nil {
		cfg.Development = fc.Bool("development")
	}
	if fc := flagSource(c, "db-host"); fc != nil {
		cfg.DBHost = fc.String("db-host")
	}
	if fc := flagSource(c, "db-port"); fc != nil {
		cfg.DBPort = fc.Int("db-port")
	}
	if fc := flagSource(c, "db-user"); fc != nil {
		cfg.DBUser = fc.String("db-user")
	}
	if fc := flagSource(c, "db-password"); fc != nil {
		cfg.DBPassword = fc.String("db-password")
	}
	if fc := flagSource(c, "db-name"); fc != nil {
		cfg.DBName = fc.String("db-name")
	}
	if fc := flagSource(c, "jwt-secret"); fc != nil {
		cfg.JWTSecret = fc.String("jwt-secret")
	}
	if fc := flagSource(c, "firebase-credentials"); fc != nil {
		cfg.FirebaseCredentialsPath = fc.String("firebase-credentials")
	}
	if fc := flagSource(c, "spend-request-ttl"); fc != nil {
		cfg.SpendRequestTTL = fc.Duration("spend-request-ttl")
	}
	if fc := flagSource(c, "sweep-interval"); fc != nil {
		cfg.SweepInterval = fc.Duration("sweep-interval")
	}
	if fc := flagSource(c, "tx-max-retries"); fc != nil {
		cfg.TxMaxRetries = fc.Int("tx-max-retries")
	}
	if fc := flagSource(c, "task-xp"); fc != nil {
		cfg.TaskXP = fc.Int64("task-xp")
	}

	if cfg.Development && cfg.JWTSecret == "" {
		cfg.JWTSecret = developmentJWTSecret
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// application holds everything both commands need.
type application struct {
	cfg   *config.Config
	log   *logger.Logger
	store repositories.Store
	close func()

	hub        *websocket.Hub
	notify     *services.NotificationService
	auth       *services.AuthService
	sessions   *services.SessionService
	ledger     *services.LedgerService
	redemption *services.RedemptionService
	rewards    *services.RewardService
	tasks      *services.TaskService
	sweeper    *services.Sweeper
}

func newApplication(ctx context.Context, c *cli.Context) (*application, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}

	// Initialize logger
	lg, err := logger.NewLogger(cfg.Development)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	a := &application{cfg: cfg, log: lg, close: func() { _ = lg.Sync() }}

	if cfg.UseDatabase() {
		db, err := config.InitDatabase(cfg, lg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		gs := impl.NewGormStore(db)
		a.store = gs
		a.close = func() {
			_ = gs.Close()
			_ = lg.Sync()
		}
	} else {
		lg.Warn("DB_HOST is empty, using the in-memory store; data is lost on restart")
		a.store = memory.NewStore()
	}

	var (
		identity interfaces.IdentityProvider
		push     interfaces.PushSender
	)
	fbApp, err := config.InitFirebase(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase: %w", err)
	}
	if fbApp != nil {
		fb, err := services.NewFirebaseService(ctx, fbApp)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize firebase clients: %w", err)
		}
		identity, push = fb, fb
	}

	clock := services.SystemClock
	a.hub = websocket.NewHub(lg.With("component", "ws"))
	notify := services.NewNotificationService(a.store, a.hub, push, clock, lg.With("component", "notify"))
	a.notify = notify

	a.auth = services.NewAuthService(a.store, services.AuthConfig{
		JWTSecret:     cfg.JWTSecret,
		JWTTTL:        cfg.JWTTTL,
		ParentCodeTTL: cfg.ParentCodeTTL,
		TxMaxRetries:  cfg.TxMaxRetries,
	}, identity, clock, lg.With("component", "auth"))
	a.sessions = services.NewSessionService(a.store, cfg.TxMaxRetries, notify, clock, lg.With("component", "sessions"))
	a.ledger = services.NewLedgerService(a.store, cfg.TxMaxRetries, clock, lg.With("component", "ledger"))
	a.redemption = services.NewRedemptionService(a.store, cfg.TxMaxRetries, cfg.SpendRequestTTL, notify, clock, lg.With("component", "redemption"))
	a.rewards = services.NewRewardService(a.store, clock, lg.With("component", "rewards"))
	a.tasks = services.NewTaskService(a.store, cfg.TxMaxRetries, a.sessions, services.FixedXPRule(cfg.TaskXP), notify, clock, lg.With("component", "tasks"))
	a.sweeper = services.NewSweeper(a.redemption, a.sessions, cfg.SweepInterval, clock, lg.With("component", "sweeper"))
	return a, nil
}

func serve(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApplication(ctx, c)
	if err != nil {
		return err
	}
	defer a.close()

	// Set services in controllers
	controllers.SetAuthService(a.auth)
	controllers.SetSessionService(a.sessions)
	controllers.SetTaskService(a.tasks)
	controllers.SetLedgerService(a.ledger)
	controllers.SetRedemptionService(a.redemption)
	controllers.SetRewardService(a.rewards)
	controllers.SetPinger(a.store)
	controllers.SetWebSocketHub(a.hub)

	if !a.cfg.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middlewares.RequestLogger(a.log.With("component", "http")))
	routes.RegisterRoutes(r, a.auth)

	srv := &http.Server{
		Addr:              ":" + a.cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.log.Infow("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error { return a.hub.Run(gctx) })
	g.Go(func() error { return a.sweeper.Run(gctx) })

	err = g.Wait()
	a.notify.Wait()
	a.log.Info("server stopped")
	return err
}

func sweep(c *cli.Context) error {
	a, err := newApplication(c.Context, c)
	if err != nil {
		return err
	}
	defer a.close()

	requests, sessions, err := a.sweeper.SweepOnce(c.Context)
	// уведомления об истечении уходят в фоне
	a.notify.Wait()
	a.log.Infow("sweep finished", "expired_requests", requests, "closed_sessions", sessions)
	return err
}

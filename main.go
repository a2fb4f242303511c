package main

import (
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
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	apirest "github.com/kasuganosora/subwars/api/rest"
	"github.com/kasuganosora/subwars/cache"
	"github.com/kasuganosora/subwars/config"
	dbadapter "github.com/kasuganosora/subwars/db"
	"github.com/kasuganosora/subwars/game/sim/sandbox"
	"github.com/kasuganosora/subwars/game/world"
	"github.com/kasuganosora/subwars/hook"
	"github.com/kasuganosora/subwars/journal"
	mw "github.com/kasuganosora/subwars/middleware"
	"github.com/kasuganosora/subwars/model"
	"github.com/kasuganosora/subwars/scheduler"
)

func main() {
	cfgPath := "config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ---- Logger ----
	var logger *zap.Logger
	var logErr error
	if cfg.Server.Debug {
		logger, logErr = zap.NewDevelopment()
	} else {
		logger, logErr = zap.NewProduction()
	}
	if logErr != nil {
		log.Fatalf("logger: %v", logErr)
	}
	defer logger.Sync()

	if cfg.Security.AdminKey == "" {
		logger.Warn("security.admin_key is not set; admin endpoints are disabled")
	}

	hooks := hook.NewCenter()

	// ---- Journal ----
	var journalSvc *journal.Service
	if cfg.Journal.Enabled {
		db, err := dbadapter.Open(cfg.Database)
		if err != nil {
			logger.Fatal("db", zap.Error(err))
		}
		if err := model.AutoMigrate(db); err != nil {
			logger.Fatal("db migrate", zap.Error(err))
		}
		journalSvc = journal.New(db, logger, journal.Options{
			Buffer:        cfg.Journal.Buffer,
			BatchSize:     cfg.Journal.BatchSize,
			FlushInterval: cfg.Journal.FlushInterval,
		})
		defer journalSvc.Stop(context.Background())
		journalSvc.Register(hooks)
		logger.Info("journal initialized", zap.String("mode", cfg.Database.Mode))
	}

	// ---- Status board ----
	store, err := cache.NewStore(cfg.Cache)
	if err != nil {
		logger.Fatal("cache", zap.Error(err))
	}
	defer store.Close()
	pubsub, err := cache.NewPubSub(cfg.Cache)
	if err != nil {
		logger.Fatal("pubsub", zap.Error(err))
	}
	board := world.NewBoard(store, pubsub, cfg.Sim.History, logger)
	board.Register(hooks)

	// ---- World ----
	ocean := sandbox.NewOcean(cfg.Sim.Sandbox)
	wm := world.NewManager(cfg.Agent, logger,
		world.WithOcean(ocean),
		world.WithHooks(hooks),
		world.WithBoard(board, cfg.Sim.PublishEvery),
	)
	for _, sp := range cfg.Sim.Spawn {
		a, err := wm.Launch(sp.Profile, sp.Position)
		if err != nil {
			logger.Fatal("spawn", zap.String("profile", sp.Profile), zap.Error(err))
		}
		logger.Info("launched", zap.String("agent", a.ID()), zap.String("profile", sp.Profile),
			zap.Float64s("position", sp.Position[:]))
	}

	// ---- Scheduler ----
	sched := scheduler.New(logger)
	wm.OnFailed(func(id string) {
		sched.AddDelay("reap:"+id, cfg.Sim.ReapAfter, func() {
			if err := wm.Remove(id); err != nil {
				logger.Debug("reap", zap.String("agent", id), zap.Error(err))
			}
		})
	})
	sched.AddTicker("world_tick", cfg.Sim.TickInterval(), wm.Tick)

	// ---- HTTP ----
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	limiter := mw.NewRateLimiter(rate.Limit(cfg.Security.RateLimitRPS), cfg.Security.RateLimitBurst)
	defer limiter.Stop()
	allow, err := mw.AllowNetworks(cfg.Security.AdminNetworks)
	if err != nil {
		logger.Fatal("security.admin_networks", zap.Error(err))
	}

	r := gin.New()
	r.Use(mw.TraceID(), mw.Recovery(logger), mw.Logger(logger), limiter.Handler())

	adminH := apirest.NewAdminHandler(board, wm, sched, journalSvc, logger)
	r.GET("/health", adminH.Health)
	adminH.Routes(r.Group("/api/admin", allow, apirest.AdminAuth(cfg.Security.AdminKey)))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown", zap.Error(err))
	}
	sched.Stop()
	wm.StopAll()
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"Carte/config"
	"Carte/internal/auth"
	"Carte/internal/game/manager"
	"Carte/internal/game/royalrun"
	"Carte/internal/matchmaker"
	"Carte/internal/middleware"
	"Carte/internal/storage"
	"Carte/internal/utils"
	"Carte/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		utils.Log.Fatal("config load failed", "err", err)
	}
	utils.Init(cfg.Log.Level)

	//-------------------------------------------------------
	// 1. Storage: Redis for snapshots and queues, Postgres for results
	//-------------------------------------------------------
	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb, err = storage.InitRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			utils.Log.Fatal("redis init failed", "addr", cfg.Redis.Addr, "err", err)
		}
		defer rdb.Close()
	}

	var results *storage.PostgresResults
	if cfg.Database.DSN != "" {
		db, err := storage.InitPostgres(cfg.Database.DSN)
		if err != nil {
			utils.Log.Fatal("postgres init failed", "err", err)
		}
		defer db.Close()
		results = storage.NewPostgresResults(db)
		if err := results.EnsureSchema(context.Background()); err != nil {
			utils.Log.Fatal("postgres schema failed", "err", err)
		}
	}

	//-------------------------------------------------------
	// 2. Hub first: sessions talk to it
	//-------------------------------------------------------
	hub := websocket.NewHub()
	go hub.Run()

	//-------------------------------------------------------
	// 3. Session registry
	//-------------------------------------------------------
	var opts []manager.Option
	if rdb != nil {
		ttl := time.Duration(cfg.Game.SaveTTLHours) * time.Hour
		opts = append(opts, manager.WithSnapshots(storage.NewRedisSnapshotStore(rdb, ttl)))
	}
	if results != nil {
		opts = append(opts, manager.WithRecorder(results))
	}
	gameMgr := manager.NewGameManager(hub, opts...)
	gameMgr.Register(royalrun.Factory)

	hub.OnIncoming = gameMgr.HandleMessage
	hub.OnDisconnect = gameMgr.OnDisconnect

	//-------------------------------------------------------
	// 4. Quick match
	//-------------------------------------------------------
	repo := matchmaker.NewMemoryRepo()
	if rdb != nil {
		repo = matchmaker.NewRedisRepo(rdb)
	}
	svc := matchmaker.NewService(repo, gameMgr, cfg.Match.PlayerTTL)
	svc.OnRoomReady = gameMgr.StartRoom

	//-------------------------------------------------------
	// 5. Routes
	//-------------------------------------------------------
	issuer := auth.NewIssuer(cfg.JWT.Secret, auth.DefaultTTL)

	r := gin.New()
	r.Use(gin.Recovery())
	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		AllowWildcard:    true,
	}
	if len(cfg.Server.AllowOrigins) == 0 || slices.Contains(cfg.Server.AllowOrigins, "*") {
		// credentials rule out a literal "*", so reflect the caller's origin
		corsCfg.AllowOriginFunc = func(string) bool { return true }
	} else {
		corsCfg.AllowOrigins = cfg.Server.AllowOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "clients": hub.Count()})
	})
	r.GET("/games", func(c *gin.Context) {
		c.JSON(http.StatusOK, gameMgr.Games())
	})
	r.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"games": gameMgr.Summaries()})
	})
	if results != nil {
		r.GET("/results/:gameType", func(c *gin.Context) {
			limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
			list, err := results.Recent(c.Request.Context(), c.Param("gameType"), min(max(limit, 1), 100))
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, list)
		})
	}

	authed := r.Group("/", middleware.Identity(issuer, cfg.Server.SecureCookie))
	{
		authed.GET("/auth/identity", auth.NewHandler(issuer).Identity)
		authed.GET("/ws/:gameType/:gameID", websocket.ServeWS(hub, gameMgr, gameMgr.OnConnect))

		mh := matchmaker.NewHandler(svc)
		authed.POST("/match/join", mh.Join)
		authed.POST("/match/cancel", mh.Cancel)
		authed.GET("/match/status", mh.Status)
	}

	//-------------------------------------------------------
	// 6. Serve until SIGINT/SIGTERM
	//-------------------------------------------------------
	srv := &http.Server{Addr: cfg.Server.Port, Handler: r}
	go func() {
		utils.Log.Info("server running", "addr", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.Log.Fatal("server failed", "err", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	utils.Log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		utils.Log.Error("server shutdown", "err", err)
	}
	hub.Close()
	gameMgr.Close()
}

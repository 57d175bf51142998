package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"anoa.com/mindminer/internal/agent"
	"anoa.com/mindminer/internal/agent/agents"
	"anoa.com/mindminer/internal/agent/providers"
	"anoa.com/mindminer/internal/config"
	"anoa.com/mindminer/internal/middleware"
	"anoa.com/mindminer/pkg/ratelimiter"

	huntHttp "anoa.com/mindminer/internal/modules/hunt/delivery/http"
	huntRepo "anoa.com/mindminer/internal/modules/hunt/repository"
	huntService "anoa.com/mindminer/internal/modules/hunt/service"

	nftHttp "anoa.com/mindminer/internal/modules/nft/delivery/http"
	nftRepo "anoa.com/mindminer/internal/modules/nft/repository"
	nftService "anoa.com/mindminer/internal/modules/nft/service"

	statsHttp "anoa.com/mindminer/internal/modules/stats/delivery/http"
	statsRepo "anoa.com/mindminer/internal/modules/stats/repository"
	statsService "anoa.com/mindminer/internal/modules/stats/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const shutdownTimeout = 15 * time.Second

type Server struct {
	engine      *gin.Engine
	db          *gorm.DB
	redisClient *redis.Client
	scheduler   *agent.Scheduler
	llm         providers.LLMProvider
}

// NewServer wires every module. A nil db selects the in-memory stores.
func NewServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	var (
		sessionRepository huntRepo.SessionRepository
		statsRepository   statsRepo.UserStatsRepository
		nftRepository     nftRepo.NFTRepository
	)
	if db != nil {
		sessionRepository = huntRepo.NewSessionRepository(db)
		statsRepository = statsRepo.NewUserStatsRepository(db)
		nftRepository = nftRepo.NewNFTRepository(db)
	} else {
		log.Println("⚠️  Using in-memory storage, data is lost on restart")
		sessionRepository = huntRepo.NewMemorySessionRepository()
		statsRepository = statsRepo.NewMemoryUserStatsRepository()
		nftRepository = nftRepo.NewMemoryNFTRepository()
	}

	// Providers
	var reddit providers.RedditClient
	if cfg.RedditConfigured() {
		reddit = providers.NewRedditClient(providers.RedditOptions{
			ClientID:     cfg.RedditClientID,
			ClientSecret: cfg.RedditClientSecret,
			UserAgent:    cfg.RedditUserAgent,
		})
	} else {
		log.Println("⚠️  Reddit credentials not set, using mock Reddit data")
		reddit = providers.NewMockRedditClient()
	}

	var llm providers.LLMProvider
	if cfg.GeminiAPIKey != "" {
		gemini, err := providers.NewGeminiProvider(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, err
		}
		llm = gemini
	} else {
		log.Println("⚠️  GEMINI_API_KEY not set, clues and verification use fallbacks")
	}

	var ledger providers.Ledger = providers.MockLedger{}
	if cfg.LedgerConfigured() {
		algorand, err := providers.NewAlgorandLedger(cfg.AlgorandNodeServer, cfg.AlgorandNodeToken, cfg.AlgorandSenderMnemonic)
		if err != nil {
			return nil, err
		}
		ledger = algorand
	} else {
		log.Println("⚠️  ALGORAND_SENDER_MNEMONIC not set, rewards are recorded with mock transaction ids")
	}

	// NFT Module
	nftSvc := nftService.NewNFTService(nftRepository)
	nftHandler := nftHttp.NewNFTHandler(nftSvc)

	// Stats Module
	statsSvc := statsService.NewStatsService(statsRepository)
	statsHandler := statsHttp.NewStatsHandler(statsSvc)

	// Hunt Module
	huntSvc := huntService.NewHuntService(
		sessionRepository,
		statsRepository,
		reddit,
		llm,
		ledger,
		nftSvc,
		redisClient,
		huntService.Options{
			HuntDuration:       cfg.HuntDuration,
			SelectorRetryDelay: cfg.SelectorRetryDelay,
			StartLockTTL:       cfg.StartLockTTL,
		},
	)
	huntHandler := huntHttp.NewHuntHandler(huntSvc)

	// Background sweep
	scheduler := agent.NewScheduler()
	if err := scheduler.RegisterAgent(agents.NewSessionSweepAgent(huntSvc, cfg.CleanupSchedule)); err != nil {
		return nil, err
	}

	if cfg.AppEnv != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	setupCORS(router, cfg.AllowedOrigins)

	router.Use(gin.Recovery())
	router.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/metrics", "/healthz"},
	}))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	rateLimit := middleware.NewRateLimitMiddleware(
		ratelimiter.New(redisClient, "hunt", cfg.RateLimitPerMinute, cfg.RateLimitPerDay),
	)

	api := router.Group("/api")
	{
		hunts := api.Group("/hunts")
		hunts.POST("", rateLimit.PerWallet(), huntHandler.StartHunt)
		hunts.POST("/cleanup", huntHandler.CleanupExpiredSessions)
		hunts.GET("/:game_id", huntHandler.GetSession)
		hunts.POST("/:game_id/submissions", rateLimit.PerWallet(), huntHandler.SubmitDiscovery)

		users := api.Group("/users/:wallet")
		users.GET("/stats", statsHandler.GetUserStats)
		users.GET("/hunts", huntHandler.GetWalletHunts)
		users.GET("/nfts", nftHandler.GetWalletNFTs)

		api.GET("/leaderboard", statsHandler.GetLeaderboard)
	}

	return &Server{
		engine:      router,
		db:          db,
		redisClient: redisClient,
		scheduler:   scheduler,
		llm:         llm,
	}, nil
}

// Run serves addr until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.scheduler.Start()
	defer s.scheduler.Stop()

	errCh := make(chan error, 1)
	go func() {
		log.Printf("🚀 MindMiner listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Println("🛑 Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if s.llm != nil {
		s.llm.Close()
	}
	if s.redisClient != nil {
		_ = s.redisClient.Close()
	}
	return nil
}

func setupCORS(router *gin.Engine, allowedOrigins string) {
	var origins []string
	for _, o := range strings.Split(allowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}

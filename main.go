package main

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/omer3kale/SichrSpace-sub002/internal/auth"
	"github.com/omer3kale/SichrSpace-sub002/internal/config"
	"github.com/omer3kale/SichrSpace-sub002/internal/database"
	"github.com/omer3kale/SichrSpace-sub002/internal/handlers"
	"github.com/omer3kale/SichrSpace-sub002/internal/jobs"
	"github.com/omer3kale/SichrSpace-sub002/internal/logging"
	"github.com/omer3kale/SichrSpace-sub002/internal/middleware"
	"github.com/omer3kale/SichrSpace-sub002/internal/ratelimit"
	"github.com/omer3kale/SichrSpace-sub002/internal/ws"
)

func main() {
	logging.Setup()
	config.Load()

	if config.AppEnv.JWTSecret == "" {
		log.Fatal().Msg("JWT_SECRET is required")
	}

	client, err := database.Connect(config.AppEnv.MongoURI)
	if err != nil {
		log.Fatal().Err(err).Msg("mongodb connection failed")
	}
	db := client.Database(config.AppEnv.DBName)
	log.Info().Str("db", db.Name()).Msg("mongodb connected")

	if err := database.EnsureUserIndexes(db); err != nil {
		log.Warn().Err(err).Msg("user index bootstrap")
	}
	if err := database.EnsureRefreshTokenIndexes(db); err != nil {
		// Without the unique tokenHash index the rotation race guard is
		// gone; refuse to start.
		log.Fatal().Err(err).Msg("refresh token index bootstrap")
	}
	if err := database.EnsureApartmentIndexes(db); err != nil {
		log.Warn().Err(err).Msg("apartment index bootstrap")
	}

	issuer, err := auth.NewIssuer(
		config.AppEnv.JWTSecret,
		config.AppEnv.AccessTokenTTL,
		config.AppEnv.RefreshTokenTTL,
		auth.WithPreviousSecret(config.AppEnv.JWTPreviousSecret),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("token issuer init failed")
	}

	store := auth.NewRefreshTokenStore(
		auth.NewMongoRefreshTokenRepository(db),
		config.AppEnv.RefreshTokenTTL,
	)

	limiter := ratelimit.NewLimiter(
		config.AppEnv.RateLimitCapacity,
		config.AppEnv.RateLimitRefillTokens,
		config.AppEnv.RateLimitRefillPeriod,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go jobs.RunRetentionSweeper(ctx, store, config.AppEnv.RetentionSweepEvery, config.AppEnv.TokenRetentionWindow)

	r := gin.Default()
	r.Use(middleware.RequestAuth(issuer))

	// Sensitive auth flows sit behind the per-client limiter; browsing
	// endpoints never do.
	sensitive := r.Group("/auth")
	sensitive.Use(middleware.RateLimit(limiter))
	{
		sensitive.POST("/register", handlers.Register(db, issuer, store))
		sensitive.POST("/login", handlers.Login(db, issuer, store))
		sensitive.POST("/refresh", handlers.Refresh(db, issuer, store))
	}

	r.POST("/auth/logout", middleware.RequireAuth(), handlers.Logout(store))
	r.GET("/auth/me", middleware.RequireAuth(), handlers.GetMe(db))

	r.GET("/api/apartments", handlers.ListApartments(db))
	r.POST("/api/apartments",
		middleware.RequireRole("landlord"),
		handlers.CreateApartment(db),
	)

	hub := ws.NewHub()
	channelAuth := ws.NewChannelAuthenticator(issuer)
	r.GET("/ws", ws.Handler(channelAuth, hub, ws.NewMongoMessageStore(db)))

	if err := r.Run(":" + config.AppEnv.Port); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

package webserver

import (
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/commonwealth-im/commonwealth-api/src/api/analytics"
	"github.com/commonwealth-im/commonwealth-api/src/api/config"
	"github.com/commonwealth-im/commonwealth-api/src/api/data"
	"github.com/commonwealth-im/commonwealth-api/src/api/notifications"
	"github.com/commonwealth-im/commonwealth-api/src/api/threads"
)

func attachRoutes(r *gin.Engine, cfg config.Config, db *gorm.DB, rdb *redis.Client, ds *discordgo.Session) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Split(cfg.AllowedOrigins, ","),
		AllowMethods:     []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	r.GET("/healthz", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authH := NewAuth(rdb, []byte(cfg.JWTSecret))
	threadsH := NewThreads(
		db,
		threads.NewService(data.NewThreadStore(db)),
		notifications.NewDispatcher(db, rdb, ds, data.GetSetting("frontend_url")),
		analytics.NewDispatcher(rdb),
	)

	limiter := NewRateLimiter(cfg.RateLimitPerMin, time.Minute)

	v1 := r.Group("/v1")
	{
		v1.POST("/auth/challenge", authH.Challenge)
		v1.POST("/auth/verify", authH.Verify)

		secured := v1.Use(JWTMiddleware([]byte(cfg.JWTSecret)), RateLimitMiddleware(limiter))
		secured.GET("/threads/:id", threadsH.Get)
		secured.PATCH("/threads/:id", threadsH.Update)
		secured.PATCH("/threads", threadsH.Update) // discord-bot path, thread located by discordMeta
	}
}

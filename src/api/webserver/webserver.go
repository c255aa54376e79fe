package webserver

import (
	"github.com/bwmarrin/discordgo"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/commonwealth-im/commonwealth-api/src/api/config"
)

func New(cfg config.Config, db *gorm.DB, rdb *redis.Client, ds *discordgo.Session) *gin.Engine {
	g := gin.New()
	g.Use(gin.Logger(), gin.Recovery())
	attachRoutes(g, cfg, db, rdb, ds)
	return g
}

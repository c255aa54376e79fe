package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"gorm.io/gorm"

	"github.com/commonwealth-im/commonwealth-api/src/api/config"
	"github.com/commonwealth-im/commonwealth-api/src/api/data"
	"github.com/commonwealth-im/commonwealth-api/src/api/events"
	"github.com/commonwealth-im/commonwealth-api/src/api/types"
	"github.com/commonwealth-im/commonwealth-api/src/api/webserver"
)

var allModels = []interface{}{
	&types.Community{}, &types.User{}, &types.Address{},
	&types.Role{}, &types.Ban{}, &types.Topic{},
	&types.Thread{}, &types.Collaboration{},
	&types.ChainEvent{}, &types.Setting{},
}

func migrate(db *gorm.DB) {
	if err := db.AutoMigrate(allModels...); err != nil {
		log.Fatalf("migrate: %v", err)
	}
}

func seed(db *gorm.DB) {
	_ = db.FirstOrCreate(&types.Community{ID: "edgeware"}, types.Community{
		ID: "edgeware", Name: "Edgeware", DefaultSymbol: "EDG", Network: "substrate", Base: "substrate",
	}).Error
}

func main() {
	cfg := config.Load()

	db := data.MustMySQL(cfg.MySQLDSN)
	migrate(db)
	seed(db)

	if err := data.LoadSettings(db); err != nil {
		log.Printf("load settings: %v", err)
	}

	rdb := data.MustRedis(cfg.RedisURL)

	var ds *discordgo.Session
	if cfg.DiscordToken != "" {
		var err error
		ds, err = discordgo.New("Bot " + cfg.DiscordToken)
		if err != nil {
			log.Printf("discord session: %v", err)
		} else if err := ds.Open(); err != nil {
			log.Printf("discord open: %v", err)
			ds = nil
		}
	}

	ctx, cancel := context.WithCancel(context.Background())

	// chain event ingestion: adapter stream plus the substrate watcher,
	// both funnelled through the dedup storage handler
	eventCh := make(chan events.RawEvent, 64)
	cache := events.NewCache(time.Duration(cfg.EventCacheTTL) * time.Second)
	storage := events.NewStorage(data.NewEventStore(db), cache, "edgeware", nil)
	go data.ConsumeChainEvents(ctx, rdb, eventCh)
	go data.StartReferendaWatcher(ctx, cfg.RPCURL, "edgeware", 30*time.Second, eventCh)
	go events.Consume(ctx, eventCh, storage)

	go data.StartRemarkWatcher(ctx, cfg.RPCURL, rdb)

	router := webserver.New(cfg, db, rdb, ds)
	httpSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		var err error
		if cfg.TLSCert != "" && cfg.TLSKey != "" {
			reloader, rerr := webserver.NewTLSReloader(cfg.TLSCert, cfg.TLSKey)
			if rerr != nil {
				log.Fatalf("tls: %v", rerr)
			}
			httpSrv.TLSConfig = reloader.GetConfig()
			err = httpSrv.ListenAndServeTLS("", "")
		} else {
			err = httpSrv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("http: %v", err)
		}
	}()
	log.Printf("Commonwealth API listening on %s", cfg.Port)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	cancel()
	cache.Stop()
	if ds != nil {
		_ = ds.Close()
	}

	shutCtx, cancelShut := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShut()
	_ = httpSrv.Shutdown(shutCtx)
}

package config

import (
	"log"
	"os"
	"strconv"
)

type Config struct {
	MySQLDSN        string
	RedisURL        string
	JWTSecret       string
	RPCURL          string
	Port            string
	TLSCert         string
	TLSKey          string
	DiscordToken    string
	EventCacheTTL   int // seconds
	RateLimitPerMin int
	AllowedOrigins  string
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		if def == "" {
			log.Fatalf("missing env %s", key)
		}
		return def
	}
	return v
}

func Load() Config {
	ttl, _ := strconv.Atoi(getenv("EVENT_CACHE_TTL", "20"))
	rate, _ := strconv.Atoi(getenv("RATE_LIMIT_PER_MIN", "60"))
	return Config{
		MySQLDSN:        getenv("MYSQL_DSN", "commonwealth:commonwealth@tcp(127.0.0.1:3306)/commonwealth?parseTime=true"),
		RedisURL:        getenv("REDIS_URL", "redis://127.0.0.1:6379/0"),
		JWTSecret:       getenv("JWT_SECRET", ""),
		RPCURL:          getenv("RPC_URL", "wss://rpc.polkadot.io"),
		Port:            getenv("PORT", "8080"),
		TLSCert:         os.Getenv("TLS_CERT"),
		TLSKey:          os.Getenv("TLS_KEY"),
		DiscordToken:    os.Getenv("DISCORD_TOKEN"),
		EventCacheTTL:   ttl,
		RateLimitPerMin: rate,
		AllowedOrigins:  getenv("ALLOWED_ORIGINS", "http://localhost:3000"),
	}
}

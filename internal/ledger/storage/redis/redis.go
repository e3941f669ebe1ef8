package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/TrulyGourav/OrchexPay/config"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// NewClient builds the ledger's Redis client and verifies connectivity. The
// replay cache and the rate-limit store share this one client; both are best
// effort, so timeouts stay tight to keep a slow Redis from stalling the
// request path.
func NewClient(ctx context.Context, cfg config.RedisConfig, log zerolog.Logger) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		ClientName:   "orchexpay-ledger",
		DialTimeout:  5 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	log.Info().
		Str("addr", cfg.Addr()).
		Int("db", cfg.DB).
		Msg("redis connected for replay cache and rate limiting")

	return client, nil
}

package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Pool sizing for the ledger. Traffic is menu pub/sub, report cache reads
// and one publish per ledger event, so a modest pool is plenty.
const (
	redisPoolSize     = 20
	redisMinIdleConns = 2
	redisMaxRetries   = 3
)

// ConnectRedis opens the cache/pub-sub client. With sentinel addresses and
// a master name it goes through Sentinel; otherwise redisURL is dialled
// directly. The client is returned only after a successful PING.
func ConnectRedis(redisURL string, sentinelAddrs []string, masterName string) (*redis.Client, error) {
	var (
		client *redis.Client
		mode   string
	)
	if len(sentinelAddrs) > 0 && masterName != "" {
		client = redis.NewFailoverClient(&redis.FailoverOptions{
			MasterName:    masterName,
			SentinelAddrs: sentinelAddrs,
			PoolSize:      redisPoolSize,
			MinIdleConns:  redisMinIdleConns,
			MaxRetries:    redisMaxRetries,
			DialTimeout:   5 * time.Second,
			ReadTimeout:   3 * time.Second,
			WriteTimeout:  3 * time.Second,
		})
		mode = fmt.Sprintf("sentinel master=%s", masterName)
	} else {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		opt.PoolSize = redisPoolSize
		opt.MinIdleConns = redisMinIdleConns
		opt.MaxRetries = redisMaxRetries
		client = redis.NewClient(opt)
		mode = "direct " + opt.Addr
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping (%s): %w", mode, err)
	}

	log.Printf("✅ Redis connected (%s)", mode)
	return client, nil
}

// CloseRedis closes client; nil is allowed.
func CloseRedis(client *redis.Client) error {
	if client == nil {
		return nil
	}
	return client.Close()
}

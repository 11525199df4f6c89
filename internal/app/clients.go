package app

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/termbase-backend/internal/data/graph"
	"github.com/yungbote/termbase-backend/internal/platform/embed"
	"github.com/yungbote/termbase-backend/internal/platform/extract"
	"github.com/yungbote/termbase-backend/internal/platform/logger"
	"github.com/yungbote/termbase-backend/internal/platform/neo4jdb"
	"github.com/yungbote/termbase-backend/internal/platform/redisdb"
)

type Clients struct {
	Redis     *goredis.Client
	Neo4j     *neo4jdb.Client
	Locker    redisdb.Locker
	Mirror    *graph.RelationGraphMirror
	Extractor extract.Extractor
	Embedder  embed.Embedder

	closeEmbedder func() error
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	var c Clients

	// Redis lock, or an in-process one for a single replica
	rdb, err := redisdb.NewFromEnv(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init redis: %w", err)
	}
	if rdb != nil {
		c.Redis = rdb
		c.Locker = redisdb.NewRedisLocker(rdb, redisdb.LockConfig{Wait: cfg.LockWait}, log)
	} else {
		log.Warn("REDIS_ADDR not set; using in-process description locks")
		c.Locker = redisdb.NewLocalLocker(cfg.LockWait)
	}

	// Neo4j mirror
	n4j, err := neo4jdb.NewFromEnv(log)
	if err != nil {
		c.Close(ctx)
		return Clients{}, fmt.Errorf("init neo4j: %w", err)
	}
	c.Neo4j = n4j
	c.Mirror = graph.NewRelationGraphMirror(n4j, log)
	c.Mirror.EnsureSchema(ctx)

	// Extraction
	c.Extractor, err = extract.New(ctx, extract.ConfigFromEnv(), log)
	if err != nil {
		c.Close(ctx)
		return Clients{}, fmt.Errorf("init extractor: %w", err)
	}

	// Embedding
	c.Embedder, c.closeEmbedder, err = embed.New(ctx, embed.ConfigFromEnv(), log)
	if err != nil {
		c.Close(ctx)
		return Clients{}, fmt.Errorf("init embedder: %w", err)
	}
	return c, nil
}

func (c *Clients) Close(ctx context.Context) {
	if c == nil {
		return
	}
	if c.closeEmbedder != nil {
		_ = c.closeEmbedder()
		c.closeEmbedder = nil
	}
	if c.Neo4j != nil {
		_ = c.Neo4j.Close(ctx)
		c.Neo4j = nil
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
		c.Redis = nil
	}
}

package recorder

import (
	"context"
	"fmt"
	"log"
	"time"

	"MarketPulse/internal/model"
	"MarketPulse/internal/projector"

	goredis "github.com/go-redis/redis/v8"
)

// RedisConfig configures the Redis mirror.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// RedisDestination mirrors the latest rows into one hash per table and symbol,
// e.g. pulse:indicators:BTC. Hashes are overwritten field by field on every run.
type RedisDestination struct {
	client *goredis.Client
	prefix string
}

// NewRedisDestination connects and pings the server.
func NewRedisDestination(cfg RedisConfig) (*RedisDestination, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "pulse"
	}
	log.Printf("[INFO] redis mirror connected to %s", cfg.Addr)
	return &RedisDestination{client: client, prefix: prefix}, nil
}

func (r *RedisDestination) Name() string { return "redis" }

// Key returns the hash key holding a symbol's row for a table.
func (r *RedisDestination) Key(table, symbol string) string {
	return r.prefix + ":" + table + ":" + symbol
}

func (r *RedisDestination) Write(ctx context.Context, t Table, rows []model.Row) model.Outcome {
	out := model.Outcome{}
	for i := 0; i < len(rows); i += DefaultChunkSize {
		end := i + DefaultChunkSize
		if end > len(rows) {
			end = len(rows)
		}
		pipe := r.client.Pipeline()
		cmds := make([]*goredis.IntCmd, 0, end-i)
		for _, row := range rows[i:end] {
			sym := fmt.Sprint(row[projector.ColSymbol])
			fields := make(map[string]interface{}, len(row))
			for k, v := range row {
				if v == nil {
					v = ""
				}
				fields[k] = v
			}
			cmds = append(cmds, pipe.HSet(ctx, r.Key(t.Name, sym), fields))
		}
		if _, err := pipe.Exec(ctx); err != nil {
			log.Printf("[WARN] redis mirror pipeline on %s: %v", t.Name, err)
		}
		for _, cmd := range cmds {
			if err := cmd.Err(); err != nil {
				out.Errors = append(out.Errors, model.WriteError{Table: t.Name, Operation: "hset", Message: err.Error()})
				continue
			}
			out.Written++
		}
	}
	return out
}

func (r *RedisDestination) Close() error { return r.client.Close() }

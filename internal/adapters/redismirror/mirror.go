// Package redismirror publishes leaderboards to Redis sorted sets so other
// services can read rankings without touching the flat file.
package redismirror

import (
	"context"
	"fmt"
	"strings"

	"github.com/okian/flatboard/internal/domain/model"
	"github.com/okian/flatboard/internal/domain/types"
	"github.com/okian/flatboard/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "flatboard"

// Mirror writes one sorted set per skill plus one for power level. Members
// are record names, scores are levels.
type Mirror struct {
	client *redis.Client
	prefix string
	log    logger.Logger
}

// Option applies a configuration option to the Mirror.
type Option func(*Mirror)

// WithPrefix sets the key prefix. Keys look like "<prefix>:leaderboard:mining".
func WithPrefix(prefix string) Option {
	return func(m *Mirror) {
		if prefix != "" {
			m.prefix = prefix
		}
	}
}

// WithLogger sets the logger used for write failures.
func WithLogger(l logger.Logger) Option {
	return func(m *Mirror) {
		if l != nil {
			m.log = l
		}
	}
}

// New wraps an existing client.
func New(client *redis.Client, opts ...Option) *Mirror {
	m := &Mirror{
		client: client,
		prefix: defaultPrefix,
		log:    logger.Get().Named("redismirror"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Dial connects to addr and verifies the connection.
func Dial(ctx context.Context, addr string, opts ...Option) (*Mirror, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return New(client, opts...), nil
}

// Close closes the Redis connection.
func (m *Mirror) Close() error {
	return m.client.Close()
}

// Key returns the sorted set key for skill or model.PowerLevel.
func (m *Mirror) Key(skill model.Skill) string {
	return fmt.Sprintf("%s:leaderboard:%s", m.prefix, strings.ToLower(skill.String()))
}

func (m *Mirror) keys() []model.Skill {
	return append(model.NonChildSkills(), model.PowerLevel)
}

// Publish writes every ranking of r in one pipeline. Records that opted out
// of leaderboards are removed instead.
func (m *Mirror) Publish(ctx context.Context, r model.Record) error {
	_, err := m.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for _, s := range m.keys() {
			if r.LeaderboardIgnored != 0 {
				p.ZRem(ctx, m.Key(s), r.Name)
				continue
			}
			score := r.PowerLevel()
			if s != model.PowerLevel {
				score = r.Levels[s]
			}
			p.ZAdd(ctx, m.Key(s), redis.Z{Score: float64(score), Member: r.Name})
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("publishing %s: %w", r.Name, err)
	}
	return nil
}

// SaveRecord publishes r and reports success. Failures are logged.
func (m *Mirror) SaveRecord(ctx context.Context, r model.Record) bool {
	if err := m.Publish(ctx, r); err != nil {
		m.log.Error(ctx, "failed to mirror record", logger.String("name", r.Name), logger.Error(err))
		return false
	}
	return true
}

// Remove deletes name from every ranking.
func (m *Mirror) Remove(ctx context.Context, name string) error {
	_, err := m.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for _, s := range m.keys() {
			p.ZRem(ctx, m.Key(s), name)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("removing %s: %w", name, err)
	}
	return nil
}

// Top returns the n highest entries for skill.
func (m *Mirror) Top(ctx context.Context, skill model.Skill, n int) ([]types.PlayerStat, error) {
	if n <= 0 {
		return []types.PlayerStat{}, nil
	}
	zs, err := m.client.ZRevRangeWithScores(ctx, m.Key(skill), 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("reading top %d: %w", n, err)
	}
	out := make([]types.PlayerStat, 0, len(zs))
	for _, z := range zs {
		name, _ := z.Member.(string)
		out = append(out, types.PlayerStat{Name: name, Value: int(z.Score)})
	}
	return out, nil
}

// Rank returns the 1-based position of name for skill.
func (m *Mirror) Rank(ctx context.Context, skill model.Skill, name string) (int, bool, error) {
	pos, err := m.client.ZRevRank(ctx, m.Key(skill), name).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("reading rank: %w", err)
	}
	return int(pos) + 1, true, nil
}

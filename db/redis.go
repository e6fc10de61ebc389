package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"

	"virtualArena/config"
	"virtualArena/state"
)

// NewRedisClient connects and pings Redis.
func NewRedisClient(ctx context.Context, env config.Env) (*redis.Client, error) {
	log.Info("🔌 Connecting to Redis...")

	addr := env.RedisURL
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     env.RedisPassword,
		DB:           env.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Info("✅ Redis connected successfully", "addr", addr)
	return client, nil
}

/* =========================
   REPOSITORY
   Redis Key: arena:{collection}:{id} -> JSON
   Index:     arena:{collection}:__index -> SET{id}
========================= */

// RedisRepository is a Repository backed by Redis strings plus a per
// collection index set.
type RedisRepository struct {
	client *redis.Client
}

func NewRedisRepository(client *redis.Client) *RedisRepository {
	return &RedisRepository{client: client}
}

func (r *RedisRepository) Get(ctx context.Context, collection, id string) ([]byte, error) {
	data, err := r.client.Get(ctx, fmt.Sprintf(config.RedisRecordKey, collection, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	return data, nil
}

func (r *RedisRepository) Set(ctx context.Context, collection, id string, data []byte) error {
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, fmt.Sprintf(config.RedisRecordKey, collection, id), data, 0)
	pipe.SAdd(ctx, fmt.Sprintf(config.RedisRecordIndex, collection), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store record: %w", err)
	}
	return nil
}

func (r *RedisRepository) List(ctx context.Context, collection string) ([][]byte, error) {
	ids, err := r.client.SMembers(ctx, fmt.Sprintf(config.RedisRecordIndex, collection)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = fmt.Sprintf(config.RedisRecordKey, collection, id)
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load records: %w", err)
	}

	out := make([][]byte, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			out = append(out, []byte(s))
		}
	}
	return out, nil
}

/* =========================
   CRASH BET MIRROR (Hash Map Structure)
   Redis Key: crash:{roundId} -> Hash{accountId: bet}
========================= */

// CrashBetData is the mirrored form of a live crash bet.
type CrashBetData struct {
	WagerID   string  `json:"wagerId"`
	Stake     float64 `json:"stake"`
	Mode      string  `json:"mode"`
	CashOutAt float64 `json:"cashOutAt,omitempty"`
}

// RedisBetMirror copies live crash bets into Redis so other processes can
// watch a round. It is write-only from the crash loop's point of view.
type RedisBetMirror struct {
	client *redis.Client
}

func NewRedisBetMirror(client *redis.Client) *RedisBetMirror {
	return &RedisBetMirror{client: client}
}

// StoreCrashBet stores or updates a bet in the round's hash
func (m *RedisBetMirror) StoreCrashBet(ctx context.Context, roundID string, bet *state.CrashBet) error {
	hashKey := fmt.Sprintf(config.RedisCrashRoundKey, roundID)

	data, err := json.Marshal(CrashBetData{
		WagerID:   bet.Wager.ID.String(),
		Stake:     bet.Wager.Stake,
		Mode:      string(bet.Wager.Mode),
		CashOutAt: bet.CashOutAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal crash bet: %w", err)
	}

	if err := m.client.HSet(ctx, hashKey, bet.Wager.AccountID, data).Err(); err != nil {
		return fmt.Errorf("failed to store crash bet: %w", err)
	}
	m.client.Expire(ctx, hashKey, config.CrashRoundTTL)
	return nil
}

// GetAllCrashBets retrieves all mirrored bets for a round
func (m *RedisBetMirror) GetAllCrashBets(ctx context.Context, roundID string) (map[string]*CrashBetData, error) {
	data, err := m.client.HGetAll(ctx, fmt.Sprintf(config.RedisCrashRoundKey, roundID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get all crash bets: %w", err)
	}

	bets := make(map[string]*CrashBetData, len(data))
	for account, raw := range data {
		var bet CrashBetData
		if err := json.Unmarshal([]byte(raw), &bet); err != nil {
			log.Warn("⚠️  Failed to unmarshal bet", "account", account, "err", err)
			continue
		}
		bets[account] = &bet
	}
	return bets, nil
}

// CleanupCrashRound removes a finished round's hash
func (m *RedisBetMirror) CleanupCrashRound(ctx context.Context, roundID string) error {
	hashKey := fmt.Sprintf(config.RedisCrashRoundKey, roundID)

	count, _ := m.client.HLen(ctx, hashKey).Result()
	if err := m.client.Del(ctx, hashKey).Err(); err != nil {
		return fmt.Errorf("failed to cleanup crash round: %w", err)
	}

	log.Debug("🧹 Cleaned up crash round", "round", roundID, "bets", count)
	return nil
}

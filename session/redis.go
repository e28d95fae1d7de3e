package session

import (
	"context"
	"encoding/json"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"usadba/config"
	"usadba/models"
	"usadba/utils"
)

const (
	statePrefix   = "u4s:booking_state:"
	historyPrefix = "u4s:history:"
)

// redisStore persists dialogue state in Redis so conversations survive
// restarts. History lives in a capped list, newest first.
type redisStore struct {
	client       *redis.Client
	cfg          config.Config
	logger       *zap.Logger
	historyLimit int
}

// NewRedisStore builds a Redis-backed session store.
func NewRedisStore(client *redis.Client, cfg config.Config) Store {
	limit := cfg.HistoryLimit
	if limit <= 0 {
		limit = 10
	}
	return &redisStore{
		client:       client,
		cfg:          cfg,
		logger:       utils.GetLogger(),
		historyLimit: limit,
	}
}

func (s *redisStore) GetContext(ctx context.Context, sessionID string) (*models.BookingContext, error) {
	raw, err := s.client.Get(ctx, statePrefix+sessionID).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var bctx models.BookingContext
	if err := json.Unmarshal([]byte(raw), &bctx); err != nil {
		s.logger.Warn("corrupt session state, dropping",
			zap.String("sessionId", sessionID), zap.Error(err))
		return nil, nil
	}
	return &bctx, nil
}

func (s *redisStore) SetContext(ctx context.Context, sessionID string, bctx *models.BookingContext) error {
	payload, err := json.Marshal(bctx)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, statePrefix+sessionID, payload, s.cfg.SessionTTL()).Err()
}

func (s *redisStore) ClearContext(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, statePrefix+sessionID).Err()
}

func (s *redisStore) History(ctx context.Context, sessionID string) ([]models.ChatMessage, error) {
	raw, err := s.client.LRange(ctx, historyPrefix+sessionID, 0, int64(s.historyLimit*2-1)).Result()
	if err != nil {
		return nil, err
	}
	// LPUSH stores newest first; reverse back to chronological order.
	messages := make([]models.ChatMessage, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		var msg models.ChatMessage
		if err := json.Unmarshal([]byte(raw[i]), &msg); err != nil {
			continue
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

func (s *redisStore) AddMessage(ctx context.Context, sessionID, role, content string) error {
	payload, err := json.Marshal(models.ChatMessage{Role: role, Content: content})
	if err != nil {
		return err
	}
	key := historyPrefix + sessionID
	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, key, payload)
	pipe.LTrim(ctx, key, 0, int64(s.historyLimit*2-1))
	pipe.Expire(ctx, key, s.cfg.SessionTTL())
	_, err = pipe.Exec(ctx)
	return err
}

func (s *redisStore) ClearHistory(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, historyPrefix+sessionID).Err()
}

func (s *redisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	types "github.com/yungbote/neurobridge-mastery/internal/domain/mastery"
	"github.com/yungbote/neurobridge-mastery/internal/platform/logger"
)

const DefaultUpdateChannel = "mastery.updates"

// UpdateBus fans committed mastery updates out over Redis pub/sub.
type UpdateBus interface {
	MasteryUpdated(ctx context.Context, u types.MasteryUpdate) error
	StartForwarder(ctx context.Context, onMsg func(u types.MasteryUpdate)) error
}

type updateBus struct {
	log     *logger.Logger
	rdb     goredis.UniversalClient
	channel string
}

func NewUpdateBus(log *logger.Logger, rdb goredis.UniversalClient, channel string) (UpdateBus, error) {
	if rdb == nil {
		return nil, fmt.Errorf("redis client required")
	}
	channel = strings.TrimSpace(channel)
	if channel == "" {
		channel = DefaultUpdateChannel
	}
	return &updateBus{
		log:     log.With("client", "RedisUpdateBus"),
		rdb:     rdb,
		channel: channel,
	}, nil
}

func (b *updateBus) MasteryUpdated(ctx context.Context, u types.MasteryUpdate) error {
	raw, err := json.Marshal(u)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

// StartForwarder subscribes and calls onMsg from a background goroutine until
// ctx is done.
func (b *updateBus) StartForwarder(ctx context.Context, onMsg func(u types.MasteryUpdate)) error {
	if onMsg == nil {
		return fmt.Errorf("onMsg callback required")
	}
	sub := b.rdb.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					return
				}
				var u types.MasteryUpdate
				if err := json.Unmarshal([]byte(m.Payload), &u); err != nil {
					b.log.Warn("bad mastery update payload", "error", err)
					continue
				}
				onMsg(u)
			}
		}
	}()
	return nil
}

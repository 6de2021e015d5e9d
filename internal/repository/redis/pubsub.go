package redisrepo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// ConfirmationChange is broadcast after a confirmation is created, edited,
// deleted or marked as embarked.
type ConfirmationChange struct {
	Kind           string `json:"kind"`
	ConfirmationID int64  `json:"confirmation_id"`
	TsUnix         int64  `json:"ts_unix"`
}

const (
	ChangeCreated  = "created"
	ChangeUpdated  = "updated"
	ChangeDeleted  = "deleted"
	ChangeEmbarked = "embarked"
)

type ConfirmationsPubSub struct {
	rdb     *redis.Client
	channel string
}

func NewConfirmationsPubSub(rdb *redis.Client) *ConfirmationsPubSub {
	return &ConfirmationsPubSub{
		rdb:     rdb,
		channel: ChannelConfirmationsChanged(),
	}
}

func (p *ConfirmationsPubSub) Publish(ctx context.Context, kind string, confirmationID int64) error {
	b, err := json.Marshal(ConfirmationChange{
		Kind:           kind,
		ConfirmationID: confirmationID,
		TsUnix:         time.Now().Unix(),
	})
	if err != nil {
		return err
	}

	return p.rdb.Publish(ctx, p.channel, b).Err()
}

// Subscribe blocks, calling handler for every well-formed change until ctx
// is done.
func (p *ConfirmationsPubSub) Subscribe(ctx context.Context, handler func(ctx context.Context, ch ConfirmationChange)) error {
	sub := p.rdb.Subscribe(ctx, p.channel)
	defer sub.Close()

	msgs := sub.Channel(redis.WithChannelSize(256))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-msgs:
			if !ok {
				return nil
			}
			if ch, ok := decodeChange(m.Payload); ok {
				handler(ctx, ch)
			}
		}
	}
}

func decodeChange(payload string) (ConfirmationChange, bool) {
	var ch ConfirmationChange
	if err := json.Unmarshal([]byte(payload), &ch); err != nil {
		return ConfirmationChange{}, false
	}
	if ch.ConfirmationID == 0 || ch.Kind == "" {
		return ConfirmationChange{}, false
	}
	return ch, true
}

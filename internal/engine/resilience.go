package engine

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ListenStateResilient keeps a Redis subscription alive: it resubscribes after
// a dropped connection, resyncs via onReconnect and hands each parsed
// "id:status" signal to onMessage. Returns when ctx is done.
func ListenStateResilient(
	ctx context.Context,
	rdb *redis.Client,
	logger *zap.Logger,
	channel string,
	onReconnect func() error,
	onMessage func(id string, status bool),
) {
	for {
		if ctx.Err() != nil {
			return
		}
		pubsub := rdb.Subscribe(ctx, channel)

		if _, err := pubsub.Receive(ctx); err != nil {
			logger.Error("failed to subscribe", zap.String("chan", channel), zap.Error(err))
			pubsub.Close()
			if !sleepCtx(ctx, 5*time.Second) {
				return
			}
			continue
		}

		// resync on every successful (re)connect
		if err := onReconnect(); err != nil {
			logger.Error("sync failed on reconnect", zap.Error(err))
		}

		ch := pubsub.Channel()

	loop:
		for {
			select {
			case <-ctx.Done():
				pubsub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					break loop // channel closed, resubscribe
				}
				id, status, ok := ParseSignal(msg.Payload)
				if !ok {
					logger.Error("invalid signal format", zap.String("payload", msg.Payload))
					continue
				}
				onMessage(id, status)
			}
		}

		pubsub.Close()
		if !sleepCtx(ctx, time.Second) {
			return
		}
	}
}

// ParseSignal splits "id:status". Status accepts on/off and true/false.
func ParseSignal(payload string) (id string, status bool, ok bool) {
	parts := strings.Split(payload, ":")
	if len(parts) != 2 || parts[0] == "" {
		return "", false, false
	}
	switch parts[1] {
	case "on", "true":
		return parts[0], true, true
	case "off", "false":
		return parts[0], false, true
	}
	return "", false, false
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

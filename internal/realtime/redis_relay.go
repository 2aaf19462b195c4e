package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/MarcoPoloResearchLab/uibuilder/backend/internal/canvas"
	"github.com/MarcoPoloResearchLab/uibuilder/backend/internal/collab"
	"github.com/MarcoPoloResearchLab/uibuilder/backend/internal/transport"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultChannelPrefix = "canvas:rooms:"

var (
	errMissingRedisClient = errors.New("redis client is required")
	errMissingOrigin      = errors.New("relay origin is required")
)

// RedisRelayConfig wires a RedisRelay.
type RedisRelayConfig struct {
	Client        *redis.Client
	ChannelPrefix string
	Origin        string
	Logger        *zap.Logger
}

// RedisRelay publishes room mutations on one pub/sub channel per room. Messages
// carry the publishing instance so that it can skip its own traffic.
type RedisRelay struct {
	client *redis.Client
	prefix string
	origin string
	logger *zap.Logger
}

type relayMessage struct {
	Origin   string          `json:"origin"`
	Envelope json.RawMessage `json:"envelope"`
}

// NewRedisRelay validates the configuration.
func NewRedisRelay(cfg RedisRelayConfig) (*RedisRelay, error) {
	if cfg.Client == nil {
		return nil, errMissingRedisClient
	}
	if strings.TrimSpace(cfg.Origin) == "" {
		return nil, errMissingOrigin
	}
	prefix := cfg.ChannelPrefix
	if prefix == "" {
		prefix = defaultChannelPrefix
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &RedisRelay{client: cfg.Client, prefix: prefix, origin: cfg.Origin, logger: logger}, nil
}

// Publish sends the mutation to every other instance.
func (r *RedisRelay) Publish(ctx context.Context, code canvas.RoomCode, mutation collab.Mutation) error {
	payload, err := encodeRelayMessage(r.origin, mutation)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, r.prefix+code.String(), payload).Err()
}

// Subscribe listens on every room channel until the context ends.
func (r *RedisRelay) Subscribe(ctx context.Context, handle func(canvas.RoomCode, collab.Mutation)) error {
	pubsub := r.client.PSubscribe(ctx, r.prefix+"*")
	defer pubsub.Close()
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("realtime: subscribe relay: %w", err)
	}
	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case message, ok := <-messages:
			if !ok {
				return nil
			}
			code, mutation, foreign, err := decodeRelayMessage(r.origin, r.prefix, message.Channel, []byte(message.Payload))
			if err != nil {
				r.logger.Warn("dropping relay message", zap.String("channel", message.Channel), zap.Error(err))
				continue
			}
			if !foreign {
				continue
			}
			handle(code, mutation)
		}
	}
}

func encodeRelayMessage(origin string, mutation collab.Mutation) ([]byte, error) {
	envelope, err := transport.EncodeMutation(transport.JSON(), mutation)
	if err != nil {
		return nil, err
	}
	return json.Marshal(relayMessage{Origin: origin, Envelope: envelope})
}

// decodeRelayMessage reports foreign=false for messages this instance published.
func decodeRelayMessage(origin, prefix, channel string, payload []byte) (canvas.RoomCode, collab.Mutation, bool, error) {
	code, err := canvas.NewRoomCode(strings.TrimPrefix(channel, prefix))
	if err != nil {
		return "", nil, false, err
	}
	var message relayMessage
	if err := json.Unmarshal(payload, &message); err != nil {
		return "", nil, false, fmt.Errorf("%w: %v", transport.ErrMalformedMessage, err)
	}
	if message.Origin == origin {
		return code, nil, false, nil
	}
	decoded, err := transport.Decode(transport.JSON(), message.Envelope)
	if err != nil {
		return "", nil, false, err
	}
	if decoded.Mutation == nil {
		return "", nil, false, fmt.Errorf("%w: %s", transport.ErrUnknownMessageType, decoded.Type)
	}
	return code, decoded.Mutation, true, nil
}

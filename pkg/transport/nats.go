package transport

import (
	"context"
	"fmt"
	"log/slog"

	comms "github.com/nats-io/nats.go"

	"github.com/matejonnet/dependency-analysis/pkg/dispatcher"
)

const natsLogPrefix = "transport:nats"

// SubscribeRPC serves JSON-RPC on subject using NATS request/reply. Every request message is one
// JSON-RPC request and gets its response on the message's reply subject. Callbacks for one
// subscription run sequentially, so this subject behaves like a single connection.
func SubscribeRPC(ctx context.Context, nc *comms.Conn, subject string, d *dispatcher.Dispatcher) (*comms.Subscription, error) {
	sub, err := nc.Subscribe(subject, func(msg *comms.Msg) {
		_ = d.Dispatch(ctx, &natsSession{nc: nc, msg: msg}, msg.Data)
	})
	if err != nil {
		return nil, fmt.Errorf("%s - failed to subscribe to %s: %w", natsLogPrefix, subject, err)
	}
	slog.Info(fmt.Sprintf("%s - Subscribed to %s", natsLogPrefix, subject))
	return sub, nil
}

// natsSession answers a single request message.
type natsSession struct {
	nc  *comms.Conn
	msg *comms.Msg
}

// IsOpen is false for messages without a reply subject: there is nobody to answer.
func (s *natsSession) IsOpen() bool {
	return s.msg.Reply != "" && s.nc.IsConnected()
}

func (s *natsSession) SendText(_ context.Context, data []byte) error {
	return s.msg.Respond(data)
}

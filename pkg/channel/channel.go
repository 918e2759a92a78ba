package channel

import "context"

// IOutbound is a one-way message transport. Send must not wait for the far
// side to act on the message.
type IOutbound interface {
	Send(ctx context.Context, message []byte) error
}

// Handler consumes messages arriving from the far side of a channel.
type Handler func(ctx context.Context, message []byte) error

// OutboundFunc adapts a function to IOutbound.
type OutboundFunc func(ctx context.Context, message []byte) error

func (f OutboundFunc) Send(ctx context.Context, message []byte) error {
	return f(ctx, message)
}

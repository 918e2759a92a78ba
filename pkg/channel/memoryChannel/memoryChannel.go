package memoryChannel

import (
	"context"
	"fmt"
	"sync"

	"github.com/Layr-Labs/webview-wallet-bridge/pkg/channel"
	"go.uber.org/zap"
)

const DefaultBufferSize = 64

// Pipe is an in-process one-way channel. Send enqueues a copy of the message;
// Run drains the queue into a handler on its own goroutine.
type Pipe struct {
	logger *zap.Logger
	queue  chan []byte

	mu     sync.RWMutex
	closed bool
}

var _ channel.IOutbound = (*Pipe)(nil)

func NewPipe(bufferSize int, logger *zap.Logger) *Pipe {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Pipe{
		logger: logger,
		queue:  make(chan []byte, bufferSize),
	}
}

// Send enqueues message. It fails instead of blocking when the queue is full.
func (p *Pipe) Send(ctx context.Context, message []byte) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return fmt.Errorf("pipe is closed")
	}

	msg := append([]byte{}, message...)
	select {
	case p.queue <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fmt.Errorf("pipe is full (%d queued messages)", cap(p.queue))
	}
}

// Run delivers queued messages to handler until ctx is done or the pipe is
// closed. Handler errors are logged and do not stop delivery.
func (p *Pipe) Run(ctx context.Context, handler channel.Handler) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-p.queue:
			if !ok {
				return
			}
			if err := handler(ctx, msg); err != nil {
				p.logger.Sugar().Warnw("Pipe handler failed", "error", err)
			}
		}
	}
}

// Receive returns the next queued message without a handler.
func (p *Pipe) Receive(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case msg, ok := <-p.queue:
		if !ok {
			return nil, fmt.Errorf("pipe is closed")
		}
		return msg, nil
	}
}

// Close stops accepting messages. Idempotent.
func (p *Pipe) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	close(p.queue)
	return nil
}

package hub

import (
	"context"
	"time"

	"github.com/DoyleJ11/dice-duel-backend/internal/lobby"
)

// AutoPlayer takes over fighterID inside lb until the room closes. It must not
// block; start a goroutine if needed.
type AutoPlayer func(ctx context.Context, lb *lobby.Lobby, fighterID string)

type options struct {
	codeAttempts int
	autoPlayer   AutoPlayer
	now          func() time.Time
	newCode      func() (string, error)
}

func defaultOptions() options {
	return options{
		codeAttempts: 10,
		now:          time.Now,
		newCode:      GenerateCode,
	}
}

type Option func(*options)

// WithAutoPlayer attaches the driver that plays NPC fighters in practice rooms.
func WithAutoPlayer(p AutoPlayer) Option {
	return func(o *options) { o.autoPlayer = p }
}

// WithCodeGenerator replaces the room code source.
func WithCodeGenerator(gen func() (string, error)) Option {
	return func(o *options) { o.newCode = gen }
}

func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

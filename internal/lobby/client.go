package lobby

import (
	"context"

	"github.com/DoyleJ11/dice-duel-backend/internal/engine"
)

// Submit hands cmd to the room loop and waits for the verdict.
func (l *Lobby) Submit(ctx context.Context, cmd engine.Command) error {
	reply := make(chan error, 1)
	if err := l.post(ctx, FromClient{Cmd: cmd, Reply: reply}); err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrClosed
	}
}

// Subscription is one client's snapshot feed.
type Subscription struct {
	// C delivers snapshots, the current one first. It is closed when the
	// feed ends; Err then says why.
	C <-chan Snapshot

	lb     *Lobby
	id     string
	out    chan Snapshot
	reason chan error
	err    error
}

// Subscribe registers clientID for snapshots. Subscribing again with the same
// clientID replaces the earlier subscription.
func (l *Lobby) Subscribe(ctx context.Context, clientID string, buffer int) (*Subscription, error) {
	if buffer < 1 {
		buffer = 1
	}
	out := make(chan Snapshot, buffer)
	reason := make(chan error, 1)
	if err := l.post(ctx, Join{ClientID: clientID, Outbox: out, Reason: reason}); err != nil {
		return nil, err
	}
	return &Subscription{C: out, lb: l, id: clientID, out: out, reason: reason}, nil
}

// Err reports why C was closed: ErrRoomDeleted, ErrShuttingDown,
// ErrSuperseded or ErrTooSlow. It is nil while C is open. Call it from the
// goroutine that reads C.
func (s *Subscription) Err() error {
	if s.err == nil {
		select {
		case s.err = <-s.reason:
		default:
		}
	}
	return s.err
}

// Leave unsubscribes. It is safe to call after the room closed or after a
// newer subscription took over the same client id.
func (s *Subscription) Leave() {
	select {
	case s.lb.inbox <- Leave{ClientID: s.id, Outbox: s.out}:
	case <-s.lb.done:
	}
}

// State returns the current version and room.
func (l *Lobby) State(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	if err := l.post(ctx, GetState{Reply: reply}); err != nil {
		return View{}, err
	}
	select {
	case v := <-reply:
		return v, nil
	case <-ctx.Done():
		return View{}, ctx.Err()
	case <-l.done:
		return View{}, ErrClosed
	}
}

// Close shuts the room loop down and closes every subscription.
func (l *Lobby) Close() {
	select {
	case l.inbox <- Shutdown{}:
	case <-l.done:
	}
}

func (l *Lobby) post(ctx context.Context, m Msg) error {
	select {
	case <-l.done:
		return ErrClosed
	default:
	}
	select {
	case l.inbox <- m:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrClosed
	}
}

package lobby

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/dice-duel-backend/internal/engine"
	"github.com/DoyleJ11/dice-duel-backend/internal/store"
)

// ErrClosed is returned once the room has been shut down or deleted.
var ErrClosed = errors.New("room closed")

// Reasons a subscription feed gets closed, reported by Subscription.Err.
var (
	ErrRoomDeleted  = errors.New("room deleted")
	ErrShuttingDown = errors.New("server shutting down")
	ErrSuperseded   = errors.New("replaced by a newer subscription")
	ErrTooSlow      = errors.New("subscriber too slow")
)

const persistTimeout = 3 * time.Second

type Msg interface{ isLobbyMsg() }

type FromClient struct {
	Cmd   engine.Command
	Reply chan error // optional; must be buffered
}

func (FromClient) isLobbyMsg() {}

type Join struct {
	ClientID string
	Outbox   chan Snapshot // where this client wants to receive snapshots
	Reason   chan error    // optional, buffered; gets why Outbox was closed
}

func (Join) isLobbyMsg() {}

// Leave only removes the subscription whose outbox matches, so a stale
// session cannot unsubscribe the one that replaced it.
type Leave struct {
	ClientID string
	Outbox   chan Snapshot
}

func (Leave) isLobbyMsg() {}

type Shutdown struct{}

func (Shutdown) isLobbyMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isLobbyMsg() {}

// Export fields
type Snapshot struct {
	Version int
	State   engine.Room
}

type View struct {
	Version    int
	NumClients int
	State      engine.Room
}

// Lobby owns one room. Every mutation goes through its inbox and is applied,
// persisted and broadcast before the next one is looked at.
type subscriber struct {
	out    chan Snapshot
	reason chan error
}

type Lobby struct {
	code    string
	inbox   chan Msg
	state   engine.Room
	version int
	clients map[string]subscriber
	store   store.Store
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewLobby starts the room loop from doc. st may be nil, in which case state
// only lives in memory.
func NewLobby(parent context.Context, doc store.Document, st store.Store, log *zap.Logger) *Lobby {
	ctx, cancel := context.WithCancel(parent)
	if log == nil {
		log = zap.NewNop()
	}

	l := &Lobby{
		code:    doc.Room.Code,
		inbox:   make(chan Msg, 64), // Small buffer
		state:   doc.Room,
		version: doc.Version,
		clients: make(map[string]subscriber),
		store:   st,
		log:     log.With(zap.String("room", doc.Room.Code)),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	go l.loop()
	return l
}

func (l *Lobby) loop() {
	for {
		select {
		case <-l.ctx.Done():
			l.shutdown(ErrShuttingDown)
			return

		case m := <-l.inbox:
			switch msg := m.(type) {
			case Join:
				// Register client + send current snapshot immediately
				if old, ok := l.clients[msg.ClientID]; ok && old.out != msg.Outbox {
					l.log.Debug("subscription replaced", zap.String("client", msg.ClientID))
					old.drop(ErrSuperseded)
				}
				sub := subscriber{out: msg.Outbox, reason: msg.Reason}
				l.clients[msg.ClientID] = sub
				l.send(msg.ClientID, sub, Snapshot{Version: l.version, State: l.state})

			case Leave:
				if cur, ok := l.clients[msg.ClientID]; ok && cur.out == msg.Outbox {
					delete(l.clients, msg.ClientID)
				}

			case FromClient:
				err := l.handle(msg.Cmd)
				if msg.Reply != nil {
					msg.Reply <- err
				}

			case GetState:
				msg.Reply <- View{
					Version:    l.version,
					NumClients: len(l.clients),
					State:      l.state,
				}

			case Shutdown:
				l.shutdown(ErrRoomDeleted)
				return
			}
		}
	}
}

func (l *Lobby) handle(cmd engine.Command) error {
	// a turn left unresolved by an earlier persist failure is settled first
	l.settle()

	events, newState, err := engine.Apply(l.state, cmd)
	if err != nil {
		l.log.Debug("command rejected",
			zap.String("type", string(cmd.Type)),
			zap.String("actor", cmd.Actor),
			zap.Error(err))
		return err
	}
	if len(events) == 0 {
		return nil
	}
	if err := l.commit(newState, events); err != nil {
		return err
	}

	// The defender's roll completes the exchange; settle it right away so the
	// resolving phase never waits on a client.
	l.settle()
	return nil
}

func (l *Lobby) settle() {
	b := l.state.Battle
	if b == nil || b.Turn == nil || b.Turn.Phase != engine.PhaseResolving {
		return
	}
	events, newState, err := engine.Apply(l.state, engine.Command{Type: engine.CmdResolveTurn})
	if err != nil {
		l.log.Error("resolve turn", zap.Error(err))
		return
	}
	if err := l.commit(newState, events); err != nil {
		l.log.Error("persist resolved turn", zap.Error(err))
	}
}

// commit persists newState as the next version, then publishes it.
func (l *Lobby) commit(newState engine.Room, events []engine.Event) error {
	if l.store != nil {
		ctx, cancel := context.WithTimeout(l.ctx, persistTimeout)
		err := l.store.Save(ctx, store.Document{Version: l.version + 1, Room: newState}, l.version)
		cancel()
		if err != nil {
			l.log.Warn("persist room", zap.Int("version", l.version+1), zap.Error(err))
			return fmt.Errorf("persist room %s: %w", l.code, err)
		}
	}

	prev := l.state.Status
	l.state = newState
	l.version++
	for _, e := range events {
		l.log.Debug("room event",
			zap.String("event", string(e.Type)),
			zap.String("fighter", e.FighterID),
			zap.String("target", e.TargetID),
			zap.Int("roll", e.Roll),
			zap.Int("round", e.Round))
	}
	if prev != newState.Status {
		l.log.Info("room status changed",
			zap.String("from", string(prev)),
			zap.String("to", string(newState.Status)),
			zap.Int("version", l.version))
	}
	l.broadcast(Snapshot{Version: l.version, State: l.state})
	return nil
}

func (l *Lobby) shutdown(reason error) {
	close(l.done)
	for id, sub := range l.clients {
		sub.drop(reason) // Tell client no more snapshots
		delete(l.clients, id)
	}
	l.cancel()
}

func (l *Lobby) broadcast(snap Snapshot) {
	for id, sub := range l.clients {
		l.send(id, sub, snap)
	}
}

func (l *Lobby) send(id string, sub subscriber, snap Snapshot) {
	select {
	case sub.out <- snap:
		//ok
	default:
		// Client is slow/full - drop them.
		l.log.Info("dropping slow client", zap.String("client", id))
		sub.drop(ErrTooSlow)
		delete(l.clients, id)
	}
}

// drop records why the feed ends, then closes it.
func (s subscriber) drop(reason error) {
	if s.reason != nil {
		select {
		case s.reason <- reason:
		default:
		}
	}
	close(s.out)
}

// Expose the inbox so tests or WS layer can send messages.
func (l *Lobby) Inbox() chan<- Msg { return l.inbox }

// Done is closed when the room shuts down, before any outbox is closed.
func (l *Lobby) Done() <-chan struct{} { return l.done }

func (l *Lobby) Code() string { return l.code }

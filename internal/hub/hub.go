package hub

import (
	"context"

	"go.uber.org/zap"

	"github.com/DoyleJ11/dice-duel-backend/internal/engine"
	"github.com/DoyleJ11/dice-duel-backend/internal/lobby"
	"github.com/DoyleJ11/dice-duel-backend/internal/store"
)

type HubMsg interface{ isHubMsg() }

type CreateLobby struct {
	Doc   store.Document
	Reply chan *lobby.Lobby
}

type GetLobby struct {
	Code  string
	Reply chan *lobby.Lobby
}

type EnsureLobby struct {
	Doc   store.Document // only used if creation happens
	Reply chan *lobby.Lobby
}

type RemoveLobby struct {
	Code  string
	Reply chan *lobby.Lobby // receives the removed lobby, nil if there was none
}

type Hub struct {
	inbox   chan HubMsg
	lobbies map[string]*lobby.Lobby
	store   store.Store
	log     *zap.Logger
	opts    options
	ctx     context.Context
	cancel  context.CancelFunc
}

type ShutdownHub struct{}

func (CreateLobby) isHubMsg() {}
func (GetLobby) isHubMsg()    {}
func (EnsureLobby) isHubMsg() {}
func (RemoveLobby) isHubMsg() {}
func (ShutdownHub) isHubMsg() {}

func NewHub(parent context.Context, st store.Store, log *zap.Logger, opts ...Option) *Hub {
	ctx, cancel := context.WithCancel(parent)
	if st == nil {
		st = store.NewMemory()
	}
	if log == nil {
		log = zap.NewNop()
	}
	h := &Hub{
		inbox:   make(chan HubMsg, 64),
		lobbies: make(map[string]*lobby.Lobby),
		store:   st,
		log:     log,
		opts:    defaultOptions(),
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, o := range opts {
		o(&h.opts)
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateLobby:
				if lb := h.lobbies[msg.Doc.Room.Code]; lb != nil {
					msg.Reply <- lb
					break
				}
				lb := lobby.NewLobby(h.ctx, msg.Doc, h.store, h.log)
				h.lobbies[msg.Doc.Room.Code] = lb
				msg.Reply <- lb

			case GetLobby:
				msg.Reply <- h.lobbies[msg.Code] // May be nil

			case EnsureLobby:
				if lb := h.lobbies[msg.Doc.Room.Code]; lb != nil {
					msg.Reply <- lb
					break
				}

				lb := lobby.NewLobby(h.ctx, msg.Doc, h.store, h.log)
				h.lobbies[msg.Doc.Room.Code] = lb
				h.resumeNPCs(lb, msg.Doc.Room)
				msg.Reply <- lb

			case RemoveLobby:
				lb := h.lobbies[msg.Code]
				delete(h.lobbies, msg.Code)
				if lb != nil {
					lb.Close()
				}
				if msg.Reply != nil {
					msg.Reply <- lb
				}

			case ShutdownHub:
				h.shutdown()
				return
			}

		}
	}
}

// shutdown stops every room through the shared context, so subscribers learn
// the server is going away rather than that their room was deleted.
func (h *Hub) shutdown() {
	clear(h.lobbies)
	h.cancel()
}

// resumeNPCs hands the computer-controlled fighters of a revived practice room
// back to the auto player.
func (h *Hub) resumeNPCs(lb *lobby.Lobby, room engine.Room) {
	if h.opts.autoPlayer == nil || !room.TestMode || room.Status == engine.StatusFinished {
		return
	}
	for _, team := range []engine.Team{room.TeamA, room.TeamB} {
		for _, f := range team.Members {
			if f.NPC {
				h.log.Info("resuming npc", zap.String("room", room.Code), zap.String("npc", f.ID))
				h.opts.autoPlayer(h.ctx, lb, f.ID)
			}
		}
	}
}

// ask sends m and waits for the lobby it replies with.
func (h *Hub) ask(ctx context.Context, m HubMsg, reply chan *lobby.Lobby) (*lobby.Lobby, error) {
	select {
	case h.inbox <- m:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-h.ctx.Done():
		return nil, ErrHubClosed
	}
	select {
	case lb := <-reply:
		return lb, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-h.ctx.Done():
		return nil, ErrHubClosed
	}
}

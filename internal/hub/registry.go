package hub

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/DoyleJ11/dice-duel-backend/internal/engine"
	"github.com/DoyleJ11/dice-duel-backend/internal/lobby"
	"github.com/DoyleJ11/dice-duel-backend/internal/store"
)

var ErrRoomNotFound = errors.New("room not found")
var ErrHubClosed = errors.New("hub closed")
var ErrNoFreeCode = errors.New("no free room code")

type Role string

const (
	RoleFighter   Role = "fighter"
	RoleSpectator Role = "spectator"
)

type CreateRequest struct {
	Initiator engine.Fighter
	Name      string
	TeamSize  int
	// Opponent, when set, makes a practice room: the fighter is seated on
	// team B as an NPC and handed to the auto player.
	Opponent *engine.Fighter
}

type JoinResult struct {
	Role Role
	Room engine.Room
}

// CreateRoom reserves a fresh code in the store and starts the room loop.
func (h *Hub) CreateRoom(ctx context.Context, req CreateRequest) (engine.Room, error) {
	if req.Initiator.ID == "" {
		return engine.Room{}, engine.ErrInvalidFighter
	}

	var room engine.Room
	created := false
	for attempt := 0; attempt < h.opts.codeAttempts && !created; attempt++ {
		code, err := h.opts.newCode()
		if err != nil {
			return engine.Room{}, fmt.Errorf("generate room code: %w", err)
		}
		room = engine.NewRoom(code, req.Name, req.TeamSize, req.Initiator, req.Opponent != nil, h.opts.now())
		err = h.store.Create(ctx, store.Document{Room: room})
		switch {
		case errors.Is(err, store.ErrCodeTaken):
			h.log.Debug("collision on code, regenerating", zap.String("code", code))
		case err != nil:
			return engine.Room{}, fmt.Errorf("create room: %w", err)
		default:
			created = true
		}
	}
	if !created {
		return engine.Room{}, ErrNoFreeCode
	}

	reply := make(chan *lobby.Lobby, 1)
	lb, err := h.ask(ctx, CreateLobby{Doc: store.Document{Room: room}, Reply: reply}, reply)
	if err != nil {
		return engine.Room{}, err
	}
	h.log.Info("room created",
		zap.String("room", room.Code),
		zap.String("creator", req.Initiator.ID),
		zap.Int("teamSize", room.TeamSize),
		zap.Bool("practice", room.TestMode))

	if req.Opponent != nil {
		npc := *req.Opponent
		npc.NPC = true
		err := lb.Submit(ctx, engine.Command{Type: engine.CmdJoinTeam, Actor: npc.ID, Team: engine.TeamB, Fighter: &npc})
		if err != nil {
			return engine.Room{}, fmt.Errorf("seat practice opponent: %w", err)
		}
		if h.opts.autoPlayer != nil {
			h.opts.autoPlayer(h.ctx, lb, npc.ID)
		}
	}

	v, err := lb.State(ctx)
	if err != nil {
		return engine.Room{}, closedAsNotFound(err)
	}
	return v.State, nil
}

// Lobby returns the live room loop for code, reviving it from the store when
// this process has not seen the room yet.
func (h *Hub) Lobby(ctx context.Context, code string) (*lobby.Lobby, error) {
	code = NormalizeCode(code)
	if !ValidCode(code) {
		return nil, ErrRoomNotFound
	}
	reply := make(chan *lobby.Lobby, 1)
	lb, err := h.ask(ctx, GetLobby{Code: code, Reply: reply}, reply)
	if err != nil {
		return nil, err
	}
	if lb != nil {
		return lb, nil
	}

	doc, err := h.store.Get(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load room %s: %w", code, err)
	}
	return h.ask(ctx, EnsureLobby{Doc: doc, Reply: reply}, reply)
}

func (h *Hub) GetRoom(ctx context.Context, code string) (lobby.View, error) {
	lb, err := h.Lobby(ctx, code)
	if err != nil {
		return lobby.View{}, err
	}
	v, err := lb.State(ctx)
	return v, closedAsNotFound(err)
}

// ListRooms reads every live room straight from the store.
func (h *Hub) ListRooms(ctx context.Context) ([]engine.Room, error) {
	docs, err := h.store.List(ctx)
	if err != nil {
		return nil, err
	}
	rooms := make([]engine.Room, 0, len(docs))
	for _, d := range docs {
		rooms = append(rooms, d.Room)
	}
	return rooms, nil
}

// JoinRoom seats challenger as a fighter. When no slot is left the challenger
// watches instead; someone already fighting in the room keeps their seat.
func (h *Hub) JoinRoom(ctx context.Context, code string, challenger engine.Fighter, team engine.TeamSide) (JoinResult, error) {
	lb, err := h.Lobby(ctx, code)
	if err != nil {
		return JoinResult{}, err
	}

	role := RoleFighter
	err = lb.Submit(ctx, engine.Command{Type: engine.CmdJoinTeam, Actor: challenger.ID, Team: team, Fighter: &challenger})
	if errors.Is(err, engine.ErrSlotUnavailable) {
		err = lb.Submit(ctx, engine.Command{
			Type:   engine.CmdJoinViewer,
			Actor:  challenger.ID,
			Viewer: engine.Viewer{ID: challenger.ID, DisplayName: challenger.Name},
		})
		switch {
		case err == nil:
			role = RoleSpectator
		case errors.Is(err, engine.ErrSlotUnavailable):
			err = nil
		}
	}
	if err != nil {
		return JoinResult{}, closedAsNotFound(err)
	}

	v, err := lb.State(ctx)
	if err != nil {
		return JoinResult{}, closedAsNotFound(err)
	}
	h.log.Info("joined room", zap.String("room", lb.Code()), zap.String("identity", challenger.ID), zap.String("role", string(role)))
	return JoinResult{Role: role, Room: v.State}, nil
}

func (h *Hub) JoinAsViewer(ctx context.Context, code string, v engine.Viewer) error {
	return h.Submit(ctx, code, engine.Command{Type: engine.CmdJoinViewer, Actor: v.ID, Viewer: v})
}

func (h *Hub) LeaveViewer(ctx context.Context, code, id string) error {
	return h.Submit(ctx, code, engine.Command{Type: engine.CmdLeaveViewer, Actor: id})
}

func (h *Hub) StartBattle(ctx context.Context, code, actor string) error {
	return h.Submit(ctx, code, engine.Command{Type: engine.CmdStartBattle, Actor: actor})
}

// Submit routes any command to the room's loop.
func (h *Hub) Submit(ctx context.Context, code string, cmd engine.Command) error {
	lb, err := h.Lobby(ctx, code)
	if err != nil {
		return err
	}
	return closedAsNotFound(lb.Submit(ctx, cmd))
}

// DeleteRoom removes the room unconditionally. Subscribers see their feed
// close and must treat that as final.
func (h *Hub) DeleteRoom(ctx context.Context, code string) error {
	code = NormalizeCode(code)
	if !ValidCode(code) {
		return ErrRoomNotFound
	}
	_, getErr := h.store.Get(ctx, code)
	if getErr != nil && !errors.Is(getErr, store.ErrNotFound) {
		return fmt.Errorf("delete room %s: %w", code, getErr)
	}
	if err := h.store.Delete(ctx, code); err != nil {
		return err
	}

	reply := make(chan *lobby.Lobby, 1)
	lb, err := h.ask(ctx, RemoveLobby{Code: code, Reply: reply}, reply)
	if err != nil {
		return err
	}
	if lb == nil && errors.Is(getErr, store.ErrNotFound) {
		return ErrRoomNotFound
	}
	h.log.Info("room deleted", zap.String("room", code))
	return nil
}

// Close stops every room loop.
func (h *Hub) Close() {
	select {
	case h.inbox <- ShutdownHub{}:
	case <-h.ctx.Done():
	}
}

func closedAsNotFound(err error) error {
	if errors.Is(err, lobby.ErrClosed) {
		return ErrRoomNotFound
	}
	return err
}

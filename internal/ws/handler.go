package ws

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/dice-duel-backend/internal/engine"
	"github.com/DoyleJ11/dice-duel-backend/internal/hub"
	"github.com/DoyleJ11/dice-duel-backend/internal/lobby"
	"github.com/DoyleJ11/dice-duel-backend/internal/types"
)

const (
	writeTimeout = 3 * time.Second
	outboxSize   = 16
)

// Handler streams one room to a websocket client and feeds the client's
// actions back into it. The client acts as the identity passed in ?id=.
func Handler(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		code := hub.NormalizeCode(q.Get("code"))
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}
		c, ok := codecFor(q.Get("format"))
		if !ok {
			http.Error(w, "unknown format", http.StatusBadRequest)
			return
		}
		clientID := q.Get("id")
		if clientID == "" {
			clientID = uuid.NewString()
		}

		lb, err := h.Lobby(r.Context(), code)
		switch {
		case errors.Is(err, hub.ErrRoomNotFound):
			http.Error(w, "room not found", http.StatusNotFound)
			return
		case err != nil:
			log.Warn("ws lookup failed", zap.String("room", code), zap.Error(err))
			http.Error(w, "room unavailable", http.StatusServiceUnavailable)
			return
		}

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			log.Debug("ws accept failed", zap.Error(err))
			return
		}
		defer conn.CloseNow()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		sub, err := lb.Subscribe(ctx, clientID, outboxSize)
		if err != nil {
			conn.Close(websocket.StatusGoingAway, "room unavailable")
			return
		}
		defer sub.Leave()

		s := &session{conn: conn, codec: c, lb: lb, id: clientID, log: log.With(zap.String("room", code), zap.String("client", clientID))}
		s.log.Debug("ws connected")
		go s.writeLoop(ctx, cancel, sub)
		s.readLoop(ctx)
		s.log.Debug("ws disconnected")
	}
}

type session struct {
	conn  *websocket.Conn
	codec codec
	lb    *lobby.Lobby
	id    string
	log   *zap.Logger
}

// writeLoop pushes snapshots until the room stops feeding us or the client goes away.
func (s *session) writeLoop(ctx context.Context, cancel context.CancelFunc, sub *lobby.Subscription) {
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-sub.C:
			if !ok {
				s.feedClosed(ctx, sub.Err())
				return
			}
			state := snap.State
			msg := types.ServerMessage{Type: types.MsgStateSnapshot, Version: snap.Version, State: &state}
			if err := s.write(ctx, msg); err != nil {
				return
			}
		}
	}
}

// feedClosed ends the socket according to why the room stopped feeding it.
// Only a deleted room is final for the client; every other close invites a
// reconnect.
func (s *session) feedClosed(ctx context.Context, reason error) {
	switch {
	case errors.Is(reason, lobby.ErrRoomDeleted):
		_ = s.write(ctx, types.ServerMessage{Type: types.MsgRoomClosed})
		s.conn.Close(websocket.StatusNormalClosure, "room closed")
	case errors.Is(reason, lobby.ErrShuttingDown):
		s.conn.Close(websocket.StatusGoingAway, "server restarting")
	case errors.Is(reason, lobby.ErrSuperseded):
		s.log.Debug("ws session replaced by a newer connection")
		s.conn.Close(websocket.StatusPolicyViolation, "replaced by a newer connection")
	default:
		s.log.Info("ws client too slow, disconnecting", zap.Error(reason))
		s.conn.Close(websocket.StatusPolicyViolation, "too slow")
	}
}

func (s *session) readLoop(ctx context.Context) {
	for {
		_, data, err := s.conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			default:
				if ctx.Err() == nil {
					s.log.Debug("ws read", zap.Error(err))
				}
			}
			return
		}

		var cm types.ClientMessage
		if err := s.codec.decode(data, &cm); err != nil {
			_ = s.write(ctx, types.ServerMessage{Type: types.MsgError, Error: "bad message"})
			continue
		}

		cmd, ok := toEngineCommand(s.id, cm)
		if !ok {
			_ = s.write(ctx, types.ServerMessage{Type: types.MsgError, Error: "unknown type"})
			continue
		}

		err = s.lb.Submit(ctx, cmd)
		switch {
		case err == nil:
		case errors.Is(err, engine.ErrStaleAction), errors.Is(err, engine.ErrBattleFinished):
			// the room already moved past this action
		case errors.Is(err, lobby.ErrClosed), errors.Is(err, context.Canceled):
			return
		default:
			_ = s.write(ctx, types.ServerMessage{Type: types.MsgError, Error: err.Error()})
		}

		if cmd.Type == engine.CmdLeaveViewer {
			s.conn.Close(websocket.StatusNormalClosure, "left")
			return
		}
	}
}

func (s *session) write(ctx context.Context, msg types.ServerMessage) error {
	payload, err := s.codec.encode(msg)
	if err != nil {
		s.log.Error("encode message", zap.String("type", msg.Type), zap.Error(err))
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return s.conn.Write(ctx, s.codec.msgType, payload)
}

func toEngineCommand(actor string, m types.ClientMessage) (engine.Command, bool) {
	cmd := engine.Command{Actor: actor, Seq: m.Seq}
	switch m.Type {
	case types.MsgSelectTarget:
		cmd.Type = engine.CmdSelectTarget
		cmd.TargetID = m.TargetID
	case types.MsgSubmitAttackRoll:
		cmd.Type = engine.CmdSubmitAttackRoll
		cmd.Roll = m.Roll
	case types.MsgSubmitDefendRoll:
		cmd.Type = engine.CmdSubmitDefendRoll
		cmd.Roll = m.Roll
	case types.MsgStartBattle:
		cmd.Type = engine.CmdStartBattle
	case types.MsgLeaveViewer:
		cmd.Type = engine.CmdLeaveViewer
	default:
		return engine.Command{}, false
	}
	return cmd, true
}

package types

import "github.com/DoyleJ11/dice-duel-backend/internal/engine"

// Client message types.
const (
	MsgSelectTarget     = "SelectTarget"
	MsgSubmitAttackRoll = "SubmitAttackRoll"
	MsgSubmitDefendRoll = "SubmitDefendRoll"
	MsgStartBattle      = "StartBattle"
	MsgLeaveViewer      = "LeaveViewer"
)

// Server message types.
const (
	MsgStateSnapshot = "StateSnapshot"
	MsgRoomClosed    = "RoomClosed"
	MsgError         = "Error"
)

type ClientMessage struct {
	Type     string `json:"type"`
	TargetID string `json:"targetId,omitempty"`
	Roll     int    `json:"roll,omitempty"`
	Seq      int    `json:"seq,omitempty"`
}

type ServerMessage struct {
	Type    string       `json:"type"` // "StateSnapshot" | "RoomClosed" | "Error"
	Version int          `json:"version,omitempty"`
	State   *engine.Room `json:"state,omitempty"`
	Error   string       `json:"error,omitempty"`
}

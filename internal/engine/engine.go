package engine

import (
	"errors"
	"fmt"
	"time"
)

var ErrWrongTurn = errors.New("not your turn")
var ErrStaleAction = errors.New("stale action")
var ErrSlotUnavailable = errors.New("slot unavailable")
var ErrInvalidTarget = errors.New("invalid target")
var ErrInvalidFighter = errors.New("invalid fighter")
var ErrNotParticipant = errors.New("not a participant")
var ErrRoomNotReady = errors.New("room not ready")
var ErrBattleFinished = errors.New("battle already finished")
var ErrUnsupportedCommand = errors.New("unsupported command")

// DefaultDieSides is the die both sides roll unless the room says otherwise.
const DefaultDieSides = 20

type TeamSide string

const (
	TeamA TeamSide = "teamA"
	TeamB TeamSide = "teamB"
)

// Opponent returns the other side.
func (t TeamSide) Opponent() TeamSide {
	if t == TeamA {
		return TeamB
	}
	return TeamA
}

type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusReady    Status = "ready"
	StatusBattling Status = "battling"
	StatusFinished Status = "finished"
)

type TurnPhase string

const (
	PhaseSelectTarget  TurnPhase = "select-target"
	PhaseRollingAttack TurnPhase = "rolling-attack"
	PhaseRollingDefend TurnPhase = "rolling-defend"
	PhaseResolving     TurnPhase = "resolving"
	PhaseFinished      TurnPhase = "finished"
)

type Power struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Fighter is the combat snapshot of a character, captured when it joins a room.
// Only the turn resolver touches it afterwards, and only CurrentHP.
type Fighter struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Nickname       string   `json:"nickname,omitempty"`
	Theme          string   `json:"theme,omitempty"`
	CurrentHP      int      `json:"currentHp"`
	MaxHP          int      `json:"maxHp"`
	Damage         int      `json:"damage"`
	AttackDieBonus int      `json:"attackDieBonus"`
	DefendDieBonus int      `json:"defendDieBonus"`
	Speed          int      `json:"speed"`
	RerollsLeft    int      `json:"rerollsLeft"`
	Skills         []string `json:"skillFlags,omitempty"`
	Powers         []Power  `json:"powers,omitempty"`
	NPC            bool     `json:"npc,omitempty"`
}

func (f Fighter) Alive() bool { return f.CurrentHP > 0 }

type Team struct {
	Members []Fighter `json:"members"`
	MaxSize int       `json:"maxSize"`
}

func (t Team) Full() bool { return len(t.Members) >= t.MaxSize }

type Viewer struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

type TurnQueueEntry struct {
	FighterID string   `json:"fighterId"`
	Team      TeamSide `json:"team"`
	Speed     int      `json:"speed"`
}

// TurnState is the live turn. Seq identifies the phase instance and grows on
// every phase change, so a submission carrying an older Seq is stale.
type TurnState struct {
	Seq          int       `json:"seq"`
	AttackerID   string    `json:"attackerId"`
	AttackerTeam TeamSide  `json:"attackerTeam"`
	DefenderID   *string   `json:"defenderId,omitempty"`
	Phase        TurnPhase `json:"phase"`
	AttackRoll   *int      `json:"attackRoll,omitempty"`
	DefendRoll   *int      `json:"defendRoll,omitempty"`
}

type BattleLogEntry struct {
	Round           int    `json:"round"`
	AttackerID      string `json:"attackerId"`
	DefenderID      string `json:"defenderId"`
	AttackRoll      int    `json:"attackRoll"`
	DefendRoll      int    `json:"defendRoll"`
	AttackBonus     int    `json:"attackBonus"`
	DefendBonus     int    `json:"defendBonus"`
	Damage          int    `json:"damage"`
	DefenderHPAfter int    `json:"defenderHpAfter"`
	Eliminated      bool   `json:"eliminated"`
	Missed          bool   `json:"missed"`
}

type Battle struct {
	TurnQueue        []TurnQueueEntry `json:"turnQueue"`
	CurrentTurnIndex int              `json:"currentTurnIndex"`
	RoundNumber      int              `json:"roundNumber"`
	DieSides         int              `json:"dieSides"`
	Turn             *TurnState       `json:"turn,omitempty"`
	Log              []BattleLogEntry `json:"log"`
	Winner           *TeamSide        `json:"winner,omitempty"`
}

type Room struct {
	Code        string            `json:"code"`
	DisplayName string            `json:"displayName"`
	Status      Status            `json:"status"`
	TeamSize    int               `json:"teamSize"`
	TeamA       Team              `json:"teamA"`
	TeamB       Team              `json:"teamB"`
	Viewers     map[string]Viewer `json:"viewers"`
	Battle      *Battle           `json:"battle,omitempty"`
	TestMode    bool              `json:"testMode,omitempty"`
	CreatorID   string            `json:"creatorId"`
	CreatedAt   time.Time         `json:"createdAt"`
}

type CommandType string

const (
	CmdJoinTeam         CommandType = "JoinTeam"
	CmdJoinViewer       CommandType = "JoinViewer"
	CmdLeaveViewer      CommandType = "LeaveViewer"
	CmdStartBattle      CommandType = "StartBattle"
	CmdSelectTarget     CommandType = "SelectTarget"
	CmdSubmitAttackRoll CommandType = "SubmitAttackRoll"
	CmdSubmitDefendRoll CommandType = "SubmitDefendRoll"
	CmdResolveTurn      CommandType = "ResolveTurn"
)

/*
	CmdJoinTeam         -> EvtFighterJoined -> EvtRoomReady (when every slot is taken)
	CmdJoinViewer       -> EvtViewerJoined (nothing if already watching)
	CmdLeaveViewer      -> EvtViewerLeft (nothing if not watching)
	CmdStartBattle      -> EvtBattleStarted
	CmdSelectTarget     -> EvtTargetSelected
	CmdSubmitAttackRoll -> EvtAttackRolled
	CmdSubmitDefendRoll -> EvtDefendRolled
	CmdResolveTurn      -> EvtTurnResolved -> EvtFighterEliminated? -> EvtRoundAdvanced? | EvtBattleFinished

	ResolveTurn is never sent by a client: the room loop issues it as soon as a
	defend roll lands, so the resolving phase is visible for exactly one snapshot.
*/

// Command is one requested mutation. Actor is the identity of whoever sent it.
// Seq, when non-zero, must match the live TurnState.Seq.
type Command struct {
	Type     CommandType
	Actor    string
	Team     TeamSide
	Fighter  *Fighter
	Viewer   Viewer
	TargetID string
	Roll     int
	Seq      int
}

type EventType string

const (
	EvtFighterJoined     EventType = "FighterJoined"
	EvtViewerJoined      EventType = "ViewerJoined"
	EvtViewerLeft        EventType = "ViewerLeft"
	EvtRoomReady         EventType = "RoomReady"
	EvtBattleStarted     EventType = "BattleStarted"
	EvtTargetSelected    EventType = "TargetSelected"
	EvtAttackRolled      EventType = "AttackRolled"
	EvtDefendRolled      EventType = "DefendRolled"
	EvtTurnResolved      EventType = "TurnResolved"
	EvtFighterEliminated EventType = "FighterEliminated"
	EvtRoundAdvanced     EventType = "RoundAdvanced"
	EvtBattleFinished    EventType = "BattleFinished"
)

type Event struct {
	Type      EventType
	Team      TeamSide
	FighterID string
	TargetID  string
	Roll      int
	Round     int
}

// Apply validates cmd against s and returns the resulting events and room.
// s is never modified; on error the original room is returned unchanged.
func Apply(s Room, cmd Command) ([]Event, Room, error) {
	switch cmd.Type {
	case CmdJoinTeam:
		return joinTeam(s, cmd)
	case CmdJoinViewer:
		return joinViewer(s, cmd)
	case CmdLeaveViewer:
		return leaveViewer(s, cmd)
	case CmdStartBattle:
		return startBattle(s, cmd)
	case CmdSelectTarget, CmdSubmitAttackRoll, CmdSubmitDefendRoll, CmdResolveTurn:
		return applyTurn(s, cmd)
	default:
		return nil, s, ErrUnsupportedCommand
	}
}

func joinTeam(s Room, cmd Command) ([]Event, Room, error) {
	if cmd.Fighter == nil || cmd.Fighter.ID == "" {
		return nil, s, ErrInvalidFighter
	}
	if s.Status != StatusWaiting {
		return nil, s, fmt.Errorf("%w: room is %s", ErrSlotUnavailable, s.Status)
	}
	if _, _, seated := s.Fighter(cmd.Fighter.ID); seated {
		return nil, s, fmt.Errorf("%w: %s already fights here", ErrSlotUnavailable, cmd.Fighter.ID)
	}

	side, ok := s.openSide(cmd.Team)
	if !ok {
		return nil, s, fmt.Errorf("%w: team full", ErrSlotUnavailable)
	}

	next := s.Clone()
	team := next.team(side)
	team.Members = append(team.Members, *cmd.Fighter)
	delete(next.Viewers, cmd.Fighter.ID)

	events := []Event{{Type: EvtFighterJoined, Team: side, FighterID: cmd.Fighter.ID}}

	if next.TeamA.Full() && next.TeamB.Full() {
		next.Status = StatusReady
		next.DisplayName = RosterName(next.TeamA, next.TeamB)
		next.Battle = &Battle{
			TurnQueue: BuildTurnQueue(next.TeamA, next.TeamB),
			DieSides:  DefaultDieSides,
			Log:       []BattleLogEntry{},
		}
		events = append(events, Event{Type: EvtRoomReady})
	}
	return events, next, nil
}

func joinViewer(s Room, cmd Command) ([]Event, Room, error) {
	if cmd.Viewer.ID == "" {
		return nil, s, ErrNotParticipant
	}
	if _, _, seated := s.Fighter(cmd.Viewer.ID); seated {
		return nil, s, fmt.Errorf("%w: %s is a fighter", ErrSlotUnavailable, cmd.Viewer.ID)
	}
	if _, watching := s.Viewers[cmd.Viewer.ID]; watching {
		return nil, s, nil
	}

	next := s.Clone()
	next.Viewers[cmd.Viewer.ID] = cmd.Viewer
	return []Event{{Type: EvtViewerJoined, FighterID: cmd.Viewer.ID}}, next, nil
}

func leaveViewer(s Room, cmd Command) ([]Event, Room, error) {
	if _, watching := s.Viewers[cmd.Actor]; !watching {
		return nil, s, nil
	}

	next := s.Clone()
	delete(next.Viewers, cmd.Actor)
	return []Event{{Type: EvtViewerLeft, FighterID: cmd.Actor}}, next, nil
}

func startBattle(s Room, cmd Command) ([]Event, Room, error) {
	switch s.Status {
	case StatusWaiting:
		return nil, s, ErrRoomNotReady
	case StatusBattling:
		return nil, s, ErrStaleAction
	case StatusFinished:
		return nil, s, ErrBattleFinished
	}
	if _, _, seated := s.Fighter(cmd.Actor); !seated {
		return nil, s, ErrNotParticipant
	}

	next := s.Clone()
	b := next.Battle
	first := b.TurnQueue[0]
	b.CurrentTurnIndex = 0
	b.RoundNumber = 1
	b.Turn = &TurnState{
		Seq:          1,
		AttackerID:   first.FighterID,
		AttackerTeam: first.Team,
		Phase:        PhaseSelectTarget,
	}
	next.Status = StatusBattling

	return []Event{{Type: EvtBattleStarted, FighterID: first.FighterID, Team: first.Team, Round: 1}}, next, nil
}

func applyTurn(s Room, cmd Command) ([]Event, Room, error) {
	switch s.Status {
	case StatusWaiting, StatusReady:
		return nil, s, ErrRoomNotReady
	case StatusFinished:
		return nil, s, ErrBattleFinished
	}

	turn := s.Battle.Turn
	if cmd.Seq != 0 && cmd.Seq != turn.Seq {
		return nil, s, ErrStaleAction
	}

	switch turn.Phase {
	case PhaseSelectTarget:
		if cmd.Type != CmdSelectTarget {
			return nil, s, ErrStaleAction
		}
		return selectTarget(s, cmd)
	case PhaseRollingAttack:
		if cmd.Type != CmdSubmitAttackRoll {
			return nil, s, ErrStaleAction
		}
		return submitAttackRoll(s, cmd)
	case PhaseRollingDefend:
		if cmd.Type != CmdSubmitDefendRoll {
			return nil, s, ErrStaleAction
		}
		return submitDefendRoll(s, cmd)
	case PhaseResolving:
		if cmd.Type != CmdResolveTurn {
			return nil, s, ErrStaleAction
		}
		return resolveTurn(s)
	case PhaseFinished:
		return nil, s, ErrBattleFinished
	default:
		return nil, s, fmt.Errorf("unknown phase %q", turn.Phase)
	}
}

func selectTarget(s Room, cmd Command) ([]Event, Room, error) {
	turn := s.Battle.Turn
	if cmd.Actor != turn.AttackerID {
		return nil, s, ErrWrongTurn
	}
	target, side, ok := s.Fighter(cmd.TargetID)
	if !ok || side == turn.AttackerTeam || !target.Alive() {
		return nil, s, ErrInvalidTarget
	}

	next := s.Clone()
	t := next.Battle.Turn
	t.DefenderID = &target.ID
	t.Phase = PhaseRollingAttack
	t.Seq++

	return []Event{{Type: EvtTargetSelected, FighterID: turn.AttackerID, TargetID: target.ID}}, next, nil
}

func submitAttackRoll(s Room, cmd Command) ([]Event, Room, error) {
	if cmd.Actor != s.Battle.Turn.AttackerID {
		return nil, s, ErrWrongTurn
	}

	next := s.Clone()
	t := next.Battle.Turn
	roll := cmd.Roll
	t.AttackRoll = &roll
	t.Phase = PhaseRollingDefend
	t.Seq++

	return []Event{{Type: EvtAttackRolled, FighterID: cmd.Actor, Roll: roll}}, next, nil
}

func submitDefendRoll(s Room, cmd Command) ([]Event, Room, error) {
	turn := s.Battle.Turn
	if turn.DefenderID == nil || cmd.Actor != *turn.DefenderID {
		return nil, s, ErrWrongTurn
	}

	next := s.Clone()
	t := next.Battle.Turn
	roll := cmd.Roll
	t.DefendRoll = &roll
	t.Phase = PhaseResolving
	t.Seq++

	return []Event{{Type: EvtDefendRolled, FighterID: cmd.Actor, Roll: roll}}, next, nil
}

package engine

import (
	"maps"
	"strings"
	"time"
)

// NewRoom seeds a waiting room with the initiator alone on team A.
func NewRoom(code, name string, teamSize int, initiator Fighter, testMode bool, now time.Time) Room {
	if teamSize < 1 {
		teamSize = 1
	}
	if name == "" {
		name = initiator.Name + "'s room"
	}
	return Room{
		Code:        code,
		DisplayName: name,
		Status:      StatusWaiting,
		TeamSize:    teamSize,
		TeamA:       Team{Members: []Fighter{initiator}, MaxSize: teamSize},
		TeamB:       Team{Members: []Fighter{}, MaxSize: teamSize},
		Viewers:     map[string]Viewer{},
		TestMode:    testMode,
		CreatorID:   initiator.ID,
		CreatedAt:   now.UTC(),
	}
}

// RosterName is the display name a room takes once both rosters are complete.
func RosterName(a, b Team) string {
	return names(a) + " vs " + names(b)
}

func names(t Team) string {
	out := make([]string, 0, len(t.Members))
	for _, m := range t.Members {
		out = append(out, m.Name)
	}
	return strings.Join(out, " & ")
}

// Fighter looks a fighter up on either team.
func (r Room) Fighter(id string) (Fighter, TeamSide, bool) {
	for _, m := range r.TeamA.Members {
		if m.ID == id {
			return m, TeamA, true
		}
	}
	for _, m := range r.TeamB.Members {
		if m.ID == id {
			return m, TeamB, true
		}
	}
	return Fighter{}, "", false
}

// Team returns the roster for side.
func (r Room) Team(side TeamSide) Team {
	if side == TeamA {
		return r.TeamA
	}
	return r.TeamB
}

// LivingOpponents lists the fighters id may still target.
func (r Room) LivingOpponents(id string) []Fighter {
	_, side, ok := r.Fighter(id)
	if !ok {
		return nil
	}
	var out []Fighter
	for _, m := range r.Team(side.Opponent()).Members {
		if m.Alive() {
			out = append(out, m)
		}
	}
	return out
}

// ActingID is the identity expected to submit the next action, if any.
func (r Room) ActingID() (string, bool) {
	if r.Status != StatusBattling || r.Battle == nil || r.Battle.Turn == nil {
		return "", false
	}
	t := r.Battle.Turn
	switch t.Phase {
	case PhaseSelectTarget, PhaseRollingAttack:
		return t.AttackerID, true
	case PhaseRollingDefend:
		if t.DefenderID == nil {
			return "", false
		}
		return *t.DefenderID, true
	case PhaseResolving, PhaseFinished:
		return "", false
	default:
		return "", false
	}
}

// Clone deep-copies everything Apply may mutate, so rooms already handed to
// subscribers are never written again.
func (r Room) Clone() Room {
	out := r
	out.TeamA.Members = copyFighters(r.TeamA.Members)
	out.TeamB.Members = copyFighters(r.TeamB.Members)
	out.Viewers = maps.Clone(r.Viewers)
	if out.Viewers == nil {
		out.Viewers = map[string]Viewer{}
	}
	if r.Battle != nil {
		b := *r.Battle
		b.TurnQueue = append([]TurnQueueEntry(nil), r.Battle.TurnQueue...)
		b.Log = append([]BattleLogEntry{}, r.Battle.Log...)
		if r.Battle.Turn != nil {
			t := *r.Battle.Turn
			b.Turn = &t
		}
		if r.Battle.Winner != nil {
			w := *r.Battle.Winner
			b.Winner = &w
		}
		out.Battle = &b
	}
	return out
}

func copyFighters(in []Fighter) []Fighter {
	return append([]Fighter{}, in...)
}

func (r *Room) team(side TeamSide) *Team {
	if side == TeamA {
		return &r.TeamA
	}
	return &r.TeamB
}

// openSide picks the team a new fighter lands on: the preferred one if it has
// room, otherwise team B before team A.
func (r Room) openSide(preferred TeamSide) (TeamSide, bool) {
	switch preferred {
	case TeamA, TeamB:
		return preferred, !r.Team(preferred).Full()
	}
	if !r.TeamB.Full() {
		return TeamB, true
	}
	if !r.TeamA.Full() {
		return TeamA, true
	}
	return "", false
}

func (r *Room) fighterRef(id string) *Fighter {
	for i := range r.TeamA.Members {
		if r.TeamA.Members[i].ID == id {
			return &r.TeamA.Members[i]
		}
	}
	for i := range r.TeamB.Members {
		if r.TeamB.Members[i].ID == id {
			return &r.TeamB.Members[i]
		}
	}
	return nil
}

func (r Room) alive(id string) bool {
	f, _, ok := r.Fighter(id)
	return ok && f.Alive()
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

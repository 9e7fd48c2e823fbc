package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fighter(id string, speed, hp, dmg, atkBonus, defBonus int) Fighter {
	return Fighter{
		ID:             id,
		Name:           id,
		CurrentHP:      hp,
		MaxHP:          hp,
		Damage:         dmg,
		AttackDieBonus: atkBonus,
		DefendDieBonus: defBonus,
		Speed:          speed,
	}
}

func newDuel(t *testing.T, a, b Fighter) Room {
	t.Helper()
	r := NewRoom("ABC234", "", 1, a, false, time.Unix(0, 0))
	_, r, err := Apply(r, Command{Type: CmdJoinTeam, Actor: b.ID, Fighter: &b})
	require.NoError(t, err)
	return r
}

func newBattle(t *testing.T, a, b Fighter) Room {
	t.Helper()
	r := newDuel(t, a, b)
	_, r, err := Apply(r, Command{Type: CmdStartBattle, Actor: a.ID})
	require.NoError(t, err)
	return r
}

// exchange plays one full turn: target, attack roll, defend roll, resolve.
func exchange(t *testing.T, r Room, target string, atk, def int) ([]Event, Room) {
	t.Helper()
	attacker := r.Battle.Turn.AttackerID
	steps := []Command{
		{Type: CmdSelectTarget, Actor: attacker, TargetID: target},
		{Type: CmdSubmitAttackRoll, Actor: attacker, Roll: atk},
		{Type: CmdSubmitDefendRoll, Actor: target, Roll: def},
		{Type: CmdResolveTurn},
	}
	var events []Event
	for _, cmd := range steps {
		var err error
		events, r, err = Apply(r, cmd)
		require.NoError(t, err, "command %s", cmd.Type)
	}
	return events, r
}

func TestJoin_FillsRoomAndOrdersQueueBySpeed(t *testing.T) {
	// F1 (speed 10) creates, F2 (speed 15) joins.
	r := newDuel(t, fighter("f1", 10, 20, 5, 0, 0), fighter("f2", 15, 20, 5, 0, 0))

	assert.Equal(t, StatusReady, r.Status)
	assert.Equal(t, "f1 vs f2", r.DisplayName)
	require.NotNil(t, r.Battle)
	require.Len(t, r.Battle.TurnQueue, 2)
	assert.Equal(t, "f2", r.Battle.TurnQueue[0].FighterID)
	assert.Equal(t, "f1", r.Battle.TurnQueue[1].FighterID)
	assert.Nil(t, r.Battle.Turn)
}

func TestJoin_Rejections(t *testing.T) {
	base := NewRoom("ABC234", "", 1, fighter("f1", 10, 20, 5, 0, 0), false, time.Now())
	full := newDuel(t, fighter("f1", 10, 20, 5, 0, 0), fighter("f2", 15, 20, 5, 0, 0))

	cases := []struct {
		name  string
		setup Room
		cmd   Command
		want  error
	}{
		{
			name:  "already seated",
			setup: base,
			cmd:   Command{Type: CmdJoinTeam, Fighter: &Fighter{ID: "f1"}},
			want:  ErrSlotUnavailable,
		},
		{
			name:  "team full",
			setup: full,
			cmd:   Command{Type: CmdJoinTeam, Fighter: &Fighter{ID: "f3"}},
			want:  ErrSlotUnavailable,
		},
		{
			name:  "preferred team full",
			setup: base,
			cmd:   Command{Type: CmdJoinTeam, Team: TeamA, Fighter: &Fighter{ID: "f3"}},
			want:  ErrSlotUnavailable,
		},
		{
			name:  "missing fighter",
			setup: base,
			cmd:   Command{Type: CmdJoinTeam},
			want:  ErrInvalidFighter,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, got, err := Apply(tc.setup, tc.cmd)
			if !errors.Is(err, tc.want) {
				t.Fatalf("want %v, got %v", tc.want, err)
			}
			assert.Equal(t, tc.setup, got)
		})
	}
}

func TestJoin_TeamOfTwoFillsBothSides(t *testing.T) {
	r := NewRoom("ABC234", "Arena", 2, fighter("a1", 5, 10, 1, 0, 0), false, time.Now())
	for _, id := range []string{"b1", "b2", "a2"} {
		f := fighter(id, 5, 10, 1, 0, 0)
		var err error
		_, r, err = Apply(r, Command{Type: CmdJoinTeam, Fighter: &f})
		require.NoError(t, err)
		assert.LessOrEqual(t, len(r.TeamA.Members), r.TeamA.MaxSize)
		assert.LessOrEqual(t, len(r.TeamB.Members), r.TeamB.MaxSize)
	}
	assert.Equal(t, StatusReady, r.Status)
	assert.Equal(t, "a1 & a2 vs b1 & b2", r.DisplayName)

	// equal speed keeps insertion order: team A then team B
	ids := []string{}
	for _, e := range r.Battle.TurnQueue {
		ids = append(ids, e.FighterID)
	}
	assert.Equal(t, []string{"a1", "a2", "b1", "b2"}, ids)
}

func TestViewer_JoinLeaveIdempotent(t *testing.T) {
	r := NewRoom("ABC234", "", 1, fighter("f1", 10, 20, 5, 0, 0), false, time.Now())

	events, r, err := Apply(r, Command{Type: CmdJoinViewer, Viewer: Viewer{ID: "v1", DisplayName: "Vee"}})
	require.NoError(t, err)
	assert.True(t, ContainsEvent(events, EvtViewerJoined))

	events, r, err = Apply(r, Command{Type: CmdJoinViewer, Viewer: Viewer{ID: "v1", DisplayName: "Vee"}})
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Len(t, r.Viewers, 1)

	events, r, err = Apply(r, Command{Type: CmdLeaveViewer, Actor: "v1"})
	require.NoError(t, err)
	assert.True(t, ContainsEvent(events, EvtViewerLeft))

	before := r
	events, r, err = Apply(r, Command{Type: CmdLeaveViewer, Actor: "v1"})
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Equal(t, before, r)
}

func TestViewer_FighterCannotAlsoWatch(t *testing.T) {
	r := NewRoom("ABC234", "", 1, fighter("f1", 10, 20, 5, 0, 0), false, time.Now())
	_, _, err := Apply(r, Command{Type: CmdJoinViewer, Viewer: Viewer{ID: "f1"}})
	if !errors.Is(err, ErrSlotUnavailable) {
		t.Fatalf("want ErrSlotUnavailable, got %v", err)
	}
}

func TestViewer_PromotedToFighterLeavesPool(t *testing.T) {
	r := NewRoom("ABC234", "", 1, fighter("f1", 10, 20, 5, 0, 0), false, time.Now())
	_, r, err := Apply(r, Command{Type: CmdJoinViewer, Viewer: Viewer{ID: "f2"}})
	require.NoError(t, err)

	f2 := fighter("f2", 1, 5, 1, 0, 0)
	_, r, err = Apply(r, Command{Type: CmdJoinTeam, Fighter: &f2})
	require.NoError(t, err)
	assert.NotContains(t, r.Viewers, "f2")
}

func TestStartBattle(t *testing.T) {
	waiting := NewRoom("ABC234", "", 1, fighter("f1", 10, 20, 5, 0, 0), false, time.Now())
	_, _, err := Apply(waiting, Command{Type: CmdStartBattle, Actor: "f1"})
	assert.ErrorIs(t, err, ErrRoomNotReady)

	ready := newDuel(t, fighter("f1", 10, 20, 5, 0, 0), fighter("f2", 15, 20, 5, 0, 0))
	_, _, err = Apply(ready, Command{Type: CmdStartBattle, Actor: "spectator"})
	assert.ErrorIs(t, err, ErrNotParticipant)

	events, r, err := Apply(ready, Command{Type: CmdStartBattle, Actor: "f1"})
	require.NoError(t, err)
	assert.True(t, ContainsEvent(events, EvtBattleStarted))
	assert.Equal(t, StatusBattling, r.Status)
	require.NotNil(t, r.Battle.Turn)
	assert.Equal(t, "f2", r.Battle.Turn.AttackerID)
	assert.Equal(t, PhaseSelectTarget, r.Battle.Turn.Phase)
	assert.Equal(t, 1, r.Battle.RoundNumber)

	_, _, err = Apply(r, Command{Type: CmdStartBattle, Actor: "f1"})
	assert.ErrorIs(t, err, ErrStaleAction)
}

func TestResolve_HitLowersDefenderHP(t *testing.T) {
	// attack 9 + 2 = 11 vs defend 9 + 0 = 9
	r := newBattle(t, fighter("f1", 10, 20, 6, 0, 0), fighter("f2", 15, 20, 4, 2, 0))

	_, r = exchange(t, r, "f1", 9, 9)

	f1, _, _ := r.Fighter("f1")
	assert.Equal(t, 16, f1.CurrentHP)
	require.Len(t, r.Battle.Log, 1)
	e := r.Battle.Log[0]
	assert.False(t, e.Missed)
	assert.Equal(t, 4, e.Damage)
	assert.Equal(t, 16, e.DefenderHPAfter)
	assert.Equal(t, 2, e.AttackBonus)
	assert.False(t, e.Eliminated)
}

func TestResolve_MissLeavesHP(t *testing.T) {
	// attack 5 + 0 = 5 vs defend 7 + 0 = 7
	r := newBattle(t, fighter("f1", 10, 20, 6, 0, 0), fighter("f2", 15, 20, 4, 0, 0))

	_, r = exchange(t, r, "f1", 5, 7)

	f1, _, _ := r.Fighter("f1")
	assert.Equal(t, 20, f1.CurrentHP)
	e := r.Battle.Log[0]
	assert.True(t, e.Missed)
	assert.Equal(t, 0, e.Damage)
}

func TestResolve_TieFavorsDefender(t *testing.T) {
	r := newBattle(t, fighter("f1", 10, 20, 6, 0, 3), fighter("f2", 15, 20, 4, 1, 0))

	// 10 + 1 = 11 vs 8 + 3 = 11
	_, r = exchange(t, r, "f1", 10, 8)
	assert.True(t, r.Battle.Log[0].Missed)
}

func TestResolve_LastHitFinishesBattle(t *testing.T) {
	r := newBattle(t, fighter("f1", 10, 3, 6, 0, 0), fighter("f2", 15, 20, 5, 0, 0))

	events, r := exchange(t, r, "f1", 12, 1)

	e := r.Battle.Log[0]
	assert.True(t, e.Eliminated)
	assert.Equal(t, 0, e.DefenderHPAfter)
	assert.True(t, ContainsEvent(events, EvtFighterEliminated))
	assert.True(t, ContainsEvent(events, EvtBattleFinished))
	assert.Equal(t, StatusFinished, r.Status)
	require.NotNil(t, r.Battle.Winner)
	assert.Equal(t, TeamB, *r.Battle.Winner)
	assert.Equal(t, PhaseFinished, r.Battle.Turn.Phase)

	_, _, err := Apply(r, Command{Type: CmdSelectTarget, Actor: "f2", TargetID: "f1"})
	assert.ErrorIs(t, err, ErrBattleFinished)
}

func TestAdvance_WrapsAndCountsRounds(t *testing.T) {
	r := newBattle(t, fighter("f1", 10, 50, 1, 0, 0), fighter("f2", 15, 50, 1, 0, 0))

	events, r := exchange(t, r, "f1", 1, 20)
	assert.False(t, ContainsEvent(events, EvtRoundAdvanced))
	assert.Equal(t, "f1", r.Battle.Turn.AttackerID)
	assert.Equal(t, 1, r.Battle.RoundNumber)

	events, r = exchange(t, r, "f2", 1, 20)
	assert.True(t, ContainsEvent(events, EvtRoundAdvanced))
	assert.Equal(t, "f2", r.Battle.Turn.AttackerID)
	assert.Equal(t, 2, r.Battle.RoundNumber)
	assert.Equal(t, 1, r.Battle.Log[1].Round)
}

func TestAdvance_SkipsEliminatedFighters(t *testing.T) {
	r := NewRoom("ABC234", "", 2, fighter("a1", 9, 10, 10, 0, 0), false, time.Now())
	for _, f := range []Fighter{
		fighter("b1", 8, 5, 1, 0, 0),
		fighter("b2", 7, 10, 1, 0, 0),
		fighter("a2", 1, 10, 1, 0, 0),
	} {
		var err error
		_, r, err = Apply(r, Command{Type: CmdJoinTeam, Fighter: &f})
		require.NoError(t, err)
	}
	_, r, err := Apply(r, Command{Type: CmdStartBattle, Actor: "a1"})
	require.NoError(t, err)

	// a1 knocks b1 out; b1 would act next and must be skipped
	_, r = exchange(t, r, "b1", 20, 1)
	assert.Equal(t, StatusBattling, r.Status)
	assert.Equal(t, "b2", r.Battle.Turn.AttackerID)
	assert.Equal(t, 2, r.Battle.CurrentTurnIndex)

	_, _, err = Apply(r, Command{Type: CmdSelectTarget, Actor: "b2", TargetID: "b1"})
	assert.ErrorIs(t, err, ErrInvalidTarget)
}

func TestTurn_RejectsWrongActorAndStaleSubmissions(t *testing.T) {
	r := newBattle(t, fighter("f1", 10, 20, 6, 0, 0), fighter("f2", 15, 20, 4, 0, 0))

	cases := []struct {
		name string
		cmd  Command
		want error
	}{
		{"defender picks target", Command{Type: CmdSelectTarget, Actor: "f1", TargetID: "f2"}, ErrWrongTurn},
		{"roll before target", Command{Type: CmdSubmitAttackRoll, Actor: "f2", Roll: 3}, ErrStaleAction},
		{"own teammate", Command{Type: CmdSelectTarget, Actor: "f2", TargetID: "f2"}, ErrInvalidTarget},
		{"unknown target", Command{Type: CmdSelectTarget, Actor: "f2", TargetID: "ghost"}, ErrInvalidTarget},
		{"old seq", Command{Type: CmdSelectTarget, Actor: "f2", TargetID: "f1", Seq: 99}, ErrStaleAction},
		{"client resolve", Command{Type: CmdResolveTurn, Actor: "f2"}, ErrStaleAction},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, got, err := Apply(r, tc.cmd)
			assert.ErrorIs(t, err, tc.want)
			assert.Equal(t, r, got)
		})
	}

	_, r, err := Apply(r, Command{Type: CmdSelectTarget, Actor: "f2", TargetID: "f1"})
	require.NoError(t, err)
	seq := r.Battle.Turn.Seq

	_, _, err = Apply(r, Command{Type: CmdSubmitAttackRoll, Actor: "f1", Roll: 20})
	assert.ErrorIs(t, err, ErrWrongTurn)

	_, r, err = Apply(r, Command{Type: CmdSubmitAttackRoll, Actor: "f2", Roll: 4, Seq: seq})
	require.NoError(t, err)

	// a duplicate of the attack roll arrives after the phase moved on
	_, _, err = Apply(r, Command{Type: CmdSubmitAttackRoll, Actor: "f2", Roll: 4, Seq: seq})
	assert.ErrorIs(t, err, ErrStaleAction)

	_, _, err = Apply(r, Command{Type: CmdSubmitDefendRoll, Actor: "f2", Roll: 4})
	assert.ErrorIs(t, err, ErrWrongTurn)
}

func TestResolve_OutOfRangeRollAcceptedAsGiven(t *testing.T) {
	r := newBattle(t, fighter("f1", 10, 20, 6, 0, 0), fighter("f2", 15, 20, 4, 0, 0))
	_, r = exchange(t, r, "f1", 500, -3)
	assert.Equal(t, 500, r.Battle.Log[0].AttackRoll)
	assert.Equal(t, -3, r.Battle.Log[0].DefendRoll)
	assert.False(t, r.Battle.Log[0].Missed)
}

func TestResolve_DeadDefenderTakesNoDamage(t *testing.T) {
	r := newBattle(t, fighter("f1", 10, 20, 6, 0, 0), fighter("f2", 15, 20, 4, 0, 0))
	_, r, _ = Apply(r, Command{Type: CmdSelectTarget, Actor: "f2", TargetID: "f1"})
	_, r, _ = Apply(r, Command{Type: CmdSubmitAttackRoll, Actor: "f2", Roll: 15})
	_, r, _ = Apply(r, Command{Type: CmdSubmitDefendRoll, Actor: "f1", Roll: 1})

	// simulate the target going down before resolution
	r.fighterRef("f1").CurrentHP = 0
	_, r, err := Apply(r, Command{Type: CmdResolveTurn})
	require.NoError(t, err)

	e := r.Battle.Log[0]
	assert.True(t, e.Missed)
	assert.False(t, e.Eliminated)
	assert.Equal(t, 0, e.Damage)
	assert.Equal(t, StatusFinished, r.Status)
}

// Plays a long random-ish battle and checks the log invariants on every entry.
func TestBattle_LogInvariants(t *testing.T) {
	r := NewRoom("ABC234", "", 2, fighter("a1", 4, 9, 3, 1, 0), false, time.Now())
	for _, f := range []Fighter{
		fighter("b1", 6, 7, 2, 0, 1),
		fighter("a2", 6, 8, 4, 0, 2),
		fighter("b2", 2, 12, 3, 2, 0),
	} {
		var err error
		_, r, err = Apply(r, Command{Type: CmdJoinTeam, Fighter: &f})
		require.NoError(t, err)
	}
	_, r, err := Apply(r, Command{Type: CmdStartBattle, Actor: "a1"})
	require.NoError(t, err)

	hp := map[string]int{}
	lastRound := r.Battle.RoundNumber
	for i := 0; r.Status == StatusBattling; i++ {
		require.Less(t, i, 200, "battle never ended")
		targets := r.LivingOpponents(r.Battle.Turn.AttackerID)
		require.NotEmpty(t, targets)
		target := targets[i%len(targets)].ID
		_, r = exchange(t, r, target, (i*7)%20+1, (i*11)%20+1)

		e := r.Battle.Log[len(r.Battle.Log)-1]
		attacker, _, _ := r.Fighter(e.AttackerID)
		assert.Equal(t, e.AttackRoll+e.AttackBonus <= e.DefendRoll+e.DefendBonus, e.Missed)
		if e.Missed {
			assert.Equal(t, 0, e.Damage)
		} else {
			assert.Equal(t, attacker.Damage, e.Damage)
		}
		assert.GreaterOrEqual(t, e.DefenderHPAfter, 0)
		if prev, ok := hp[e.DefenderID]; ok {
			assert.LessOrEqual(t, e.DefenderHPAfter, prev)
		}
		hp[e.DefenderID] = e.DefenderHPAfter
		assert.GreaterOrEqual(t, r.Battle.RoundNumber, lastRound)
		lastRound = r.Battle.RoundNumber
	}

	require.NotNil(t, r.Battle.Winner)
	loser := r.Team(r.Battle.Winner.Opponent())
	for _, m := range loser.Members {
		assert.Equal(t, 0, m.CurrentHP)
	}
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	r := newBattle(t, fighter("f1", 10, 20, 6, 0, 0), fighter("f2", 15, 20, 4, 0, 0))
	before := r.Clone()

	_, _ = exchange(t, r, "f1", 20, 1)
	assert.Equal(t, before, r)
}

func TestApply_UnsupportedCommand(t *testing.T) {
	_, _, err := Apply(Room{}, Command{Type: "Dance"})
	if err == nil || !errors.Is(err, ErrUnsupportedCommand) {
		t.Fatalf("want ErrUnsupportedCommand, got %v", err)
	}
}

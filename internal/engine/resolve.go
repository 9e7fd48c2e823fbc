package engine

// resolveTurn settles the exchange recorded in the resolving phase, appends the
// log entry and either finishes the battle or hands the turn to the next
// living fighter in the queue.
func resolveTurn(s Room) ([]Event, Room, error) {
	turn := s.Battle.Turn
	if turn.DefenderID == nil || turn.AttackRoll == nil || turn.DefendRoll == nil {
		return nil, s, ErrStaleAction
	}

	next := s.Clone()
	b := next.Battle
	attacker := next.fighterRef(turn.AttackerID)
	defender := next.fighterRef(*turn.DefenderID)
	if attacker == nil || defender == nil {
		return nil, s, ErrInvalidTarget
	}

	effAtk := *turn.AttackRoll + attacker.AttackDieBonus
	effDef := *turn.DefendRoll + defender.DefendDieBonus
	// A defender already at zero takes nothing, so nobody is eliminated twice.
	hit := effAtk > effDef && defender.Alive()

	entry := BattleLogEntry{
		Round:       b.RoundNumber,
		AttackerID:  attacker.ID,
		DefenderID:  defender.ID,
		AttackRoll:  *turn.AttackRoll,
		DefendRoll:  *turn.DefendRoll,
		AttackBonus: attacker.AttackDieBonus,
		DefendBonus: defender.DefendDieBonus,
		Missed:      !hit,
	}
	if hit {
		defender.CurrentHP = max(0, defender.CurrentHP-attacker.Damage)
		entry.Damage = attacker.Damage
		entry.Eliminated = defender.CurrentHP == 0
	}
	entry.DefenderHPAfter = defender.CurrentHP
	b.Log = append(b.Log, entry)

	events := []Event{{
		Type:      EvtTurnResolved,
		FighterID: attacker.ID,
		TargetID:  defender.ID,
		Round:     b.RoundNumber,
	}}
	if entry.Eliminated {
		events = append(events, Event{Type: EvtFighterEliminated, FighterID: defender.ID})
	}

	if winner, done := next.decideWinner(); done {
		b.Winner = &winner
		next.Status = StatusFinished
		b.Turn = &TurnState{
			Seq:          turn.Seq + 1,
			AttackerID:   turn.AttackerID,
			AttackerTeam: turn.AttackerTeam,
			DefenderID:   turn.DefenderID,
			Phase:        PhaseFinished,
			AttackRoll:   turn.AttackRoll,
			DefendRoll:   turn.DefendRoll,
		}
		events = append(events, Event{Type: EvtBattleFinished, Team: winner, Round: b.RoundNumber})
		return events, next, nil
	}

	idx, wrapped := nextLiving(b.TurnQueue, b.CurrentTurnIndex, next.alive)
	if wrapped {
		b.RoundNumber++
		events = append(events, Event{Type: EvtRoundAdvanced, Round: b.RoundNumber})
	}
	b.CurrentTurnIndex = idx
	entryNext := b.TurnQueue[idx]
	b.Turn = &TurnState{
		Seq:          turn.Seq + 1,
		AttackerID:   entryNext.FighterID,
		AttackerTeam: entryNext.Team,
		Phase:        PhaseSelectTarget,
	}
	return events, next, nil
}

// decideWinner reports the surviving side once every member of the other side
// is down.
func (r Room) decideWinner() (TeamSide, bool) {
	if allDown(r.TeamA) {
		return TeamB, true
	}
	if allDown(r.TeamB) {
		return TeamA, true
	}
	return "", false
}

func allDown(t Team) bool {
	for _, m := range t.Members {
		if m.Alive() {
			return false
		}
	}
	return len(t.Members) > 0
}

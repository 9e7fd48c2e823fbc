package character

import "github.com/DoyleJ11/dice-duel-backend/internal/engine"

// ToFighterState freezes a character into the fighter that enters a room under
// identity. Only unlocked powers are carried over and the fighter starts at
// full health. Later edits to the character never reach the snapshot.
func ToFighterState(identity string, c Character) engine.Fighter {
	f := engine.Fighter{
		ID:             identity,
		Name:           c.Name,
		Nickname:       c.Nickname,
		Theme:          c.Theme,
		CurrentHP:      c.MaxHP,
		MaxHP:          c.MaxHP,
		Damage:         c.Damage,
		AttackDieBonus: c.AttackDieBonus,
		DefendDieBonus: c.DefendDieBonus,
		Speed:          c.Speed,
		RerollsLeft:    c.Rerolls,
	}
	if len(c.Skills) > 0 {
		f.Skills = append([]string(nil), c.Skills...)
	}
	for _, p := range c.Powers {
		if !p.Unlocked {
			continue
		}
		f.Powers = append(f.Powers, engine.Power{ID: p.ID, Name: p.Name, Description: p.Description})
	}
	return f
}

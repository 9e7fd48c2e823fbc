package character

// PracticeOpponentID is the record practice rooms pull their computer-controlled
// fighter from.
const PracticeOpponentID = "practice-dummy"

// PracticeOpponent is the default record behind PracticeOpponentID, seeded into
// whichever repository the server runs with.
var PracticeOpponent = Character{
	ID:             PracticeOpponentID,
	Name:           "Training Dummy",
	Nickname:       "Dummy",
	Theme:          "straw",
	MaxHP:          12,
	Damage:         2,
	AttackDieBonus: 0,
	DefendDieBonus: 1,
	Speed:          5,
	Rerolls:        0,
}

// Starters is the roster a fresh deployment is seeded with.
var Starters = []Character{
	PracticeOpponent,
	{
		ID: "knight", Name: "Sir Bramble", Nickname: "Bramble", Theme: "steel",
		MaxHP: 14, Damage: 3, DefendDieBonus: 2, Speed: 4, Rerolls: 1,
		Skills: []string{"shield-wall"},
		Powers: []Power{{ID: "knight-bash", CharacterID: "knight", Name: "Shield Bash", Description: "Knock the target off balance.", Unlocked: true}},
	},
	{
		ID: "rogue", Name: "Vex", Theme: "shadow",
		MaxHP: 9, Damage: 4, AttackDieBonus: 2, Speed: 9, Rerolls: 2,
		Skills: []string{"backstab"},
		Powers: []Power{
			{ID: "rogue-vanish", CharacterID: "rogue", Name: "Vanish", Unlocked: true},
			{ID: "rogue-poison", CharacterID: "rogue", Name: "Poisoned Blade", Unlocked: false},
		},
	},
	{
		ID: "brute", Name: "Grull", Theme: "stone",
		MaxHP: 18, Damage: 5, AttackDieBonus: -1, Speed: 2,
	},
}

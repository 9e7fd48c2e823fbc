// Package character reads the persistent character records fighters are built
// from and turns them into frozen combat snapshots.
package character

import (
	"context"
	"errors"
)

var ErrCharacterNotFound = errors.New("character not found")

// Character is the long-lived record edited outside this service.
type Character struct {
	ID             string   `gorm:"primaryKey" json:"id"`
	Name           string   `gorm:"not null" json:"name"`
	Nickname       string   `json:"nickname"`
	Theme          string   `json:"theme"`
	MaxHP          int      `gorm:"not null;default:10" json:"maxHp"`
	Damage         int      `gorm:"not null;default:1" json:"damage"`
	AttackDieBonus int      `json:"attackDieBonus"`
	DefendDieBonus int      `json:"defendDieBonus"`
	Speed          int      `json:"speed"`
	Rerolls        int      `json:"rerolls"`
	Skills         []string `gorm:"serializer:json" json:"skills"`
	Powers         []Power  `gorm:"foreignKey:CharacterID" json:"powers"`
}

type Power struct {
	ID          string `gorm:"primaryKey" json:"id"`
	CharacterID string `gorm:"index;not null" json:"characterId"`
	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description"`
	Unlocked    bool   `gorm:"not null;default:false" json:"unlocked"`
}

// Repository is the read side of the character store.
type Repository interface {
	Get(ctx context.Context, id string) (Character, error)
}

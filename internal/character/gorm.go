package character

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GormRepository reads characters and their powers from Postgres.
type GormRepository struct {
	db *gorm.DB
}

// OpenGorm connects to dsn and makes sure the character tables exist.
func OpenGorm(dsn string) (*GormRepository, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open character db: %w", err)
	}
	if err := db.AutoMigrate(&Character{}, &Power{}); err != nil {
		return nil, fmt.Errorf("migrate character db: %w", err)
	}
	return NewGormRepository(db), nil
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (g *GormRepository) Get(ctx context.Context, id string) (Character, error) {
	var c Character
	err := g.db.WithContext(ctx).Preload("Powers").First(&c, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Character{}, ErrCharacterNotFound
	}
	if err != nil {
		return Character{}, fmt.Errorf("load character %s: %w", id, err)
	}
	return c, nil
}

// Seed inserts characters that are not there yet. Used for practice NPCs.
func (g *GormRepository) Seed(ctx context.Context, chars ...Character) error {
	for _, c := range chars {
		if err := g.db.WithContext(ctx).FirstOrCreate(&c, Character{ID: c.ID}).Error; err != nil {
			return fmt.Errorf("seed character %s: %w", c.ID, err)
		}
	}
	return nil
}

func (g *GormRepository) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

package rating

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type ratingRow struct {
	Identity  string `gorm:"primaryKey;size:64"`
	Username  string `gorm:"size:64"`
	Value     int    `gorm:"not null"`
	UpdatedAt time.Time
}

func (ratingRow) TableName() string { return "ratings" }

// GormStore keeps ratings in postgres.
type GormStore struct {
	db *gorm.DB
}

func OpenGormStore(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return NewGormStore(db)
}

func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&ratingRow{}); err != nil {
		return nil, fmt.Errorf("migrate ratings: %w", err)
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) Get(ctx context.Context, identity string) (Record, error) {
	var row ratingRow
	err := s.db.WithContext(ctx).First(&row, "identity = ?", identity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("get rating: %w", err)
	}
	return row.record(), nil
}

func (s *GormStore) Settle(ctx context.Context, winner, loser Player) (Outcome, error) {
	var out Outcome
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return settleRows(tx, winner, loser, &out)
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("settle round: %w", err)
	}
	return out, nil
}

// settleRows locks both rows in identity order so two rooms settling the
// same pair cannot deadlock.
func settleRows(tx *gorm.DB, winner, loser Player, out *Outcome) error {
	var err error
	if winner.Identity > loser.Identity {
		if out.Loser, err = adjustRow(tx, loser, -Delta); err != nil {
			return err
		}
		out.Winner, err = adjustRow(tx, winner, Delta)
		return err
	}
	if out.Winner, err = adjustRow(tx, winner, Delta); err != nil {
		return err
	}
	out.Loser, err = adjustRow(tx, loser, -Delta)
	return err
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func adjustRow(tx *gorm.DB, p Player, delta int) (Record, error) {
	// A concurrent first settle of the same identity inserts nothing here
	// and then waits on the row lock below.
	seed := ratingRow{Identity: p.Identity, Username: p.Username, Value: Initial}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return Record{}, fmt.Errorf("seed %s: %w", p.Identity, err)
	}

	var row ratingRow
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("identity = ?", p.Identity).
		Take(&row).Error
	if err != nil {
		return Record{}, fmt.Errorf("load %s: %w", p.Identity, err)
	}

	row.Username = p.Username
	row.Value += delta
	err = tx.Model(&ratingRow{}).
		Where("identity = ?", p.Identity).
		Updates(map[string]any{"username": row.Username, "value": row.Value}).Error
	if err != nil {
		return Record{}, fmt.Errorf("save %s: %w", p.Identity, err)
	}
	return row.record(), nil
}

func (r ratingRow) record() Record {
	return Record{Identity: r.Identity, Username: r.Username, Rating: r.Value}
}

package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"chronicles/core/events"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
	projectTimeout  = 5 * time.Second
)

// Store maintains the mint projection. It implements events.Emitter so it
// can be chained behind the engine's emitter.
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

// Open connects to the projection database and migrates its schema.
func Open(driver, dsn string, logger *slog.Logger) (*Store, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("index: unsupported driver %q", driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("index: open: %w", err)
	}
	return New(db, logger)
}

// New wraps an existing gorm handle.
func New(db *gorm.DB, logger *slog.Logger) (*Store, error) {
	if db == nil {
		return nil, errors.New("index: database required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("index: migrate: %w", err)
	}
	return &Store{db: db, logger: logger.With("component", "index")}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Emit implements events.Emitter. Only AssetMinted changes the projection.
func (s *Store) Emit(evt events.Event) {
	minted, ok := evt.(events.AssetMinted)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), projectTimeout)
	defer cancel()
	if err := s.Project(ctx, minted); err != nil {
		s.logger.Error("project mint", "asset", minted.Asset.String(), "error", err)
	}
}

// Project records a committed mint. Replays of the same asset are ignored.
func (s *Store) Project(ctx context.Context, evt events.AssetMinted) error {
	row := Mint{
		ID:          uuid.New(),
		Asset:       evt.Asset.String(),
		Collection:  evt.Collection.String(),
		Role:        strings.ToLower(evt.Role),
		Owner:       evt.Owner.String(),
		Number:      evt.Number,
		TreasuryFee: evt.TreasuryFee,
		AntiscamFee: evt.AntiscamFee,
		MintedAt:    evt.MintedAt.UTC(),
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "asset"}}, DoNothing: true}).
		Create(&row).Error
}

// Query filters the gallery listing. Zero values match everything.
type Query struct {
	Role   string
	Owner  string
	Since  time.Time
	Until  time.Time
	Limit  int
	Offset int
}

func (q Query) apply(db *gorm.DB) *gorm.DB {
	if role := strings.ToLower(strings.TrimSpace(q.Role)); role != "" {
		db = db.Where("role = ?", role)
	}
	if owner := strings.TrimSpace(q.Owner); owner != "" {
		db = db.Where("owner = ?", owner)
	}
	if !q.Since.IsZero() {
		db = db.Where("minted_at >= ?", q.Since.UTC())
	}
	if !q.Until.IsZero() {
		db = db.Where("minted_at < ?", q.Until.UTC())
	}
	return db
}

// Gallery lists projected mints newest first.
func (s *Store) Gallery(ctx context.Context, q Query) ([]Mint, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	var rows []Mint
	err := q.apply(s.db.WithContext(ctx).Model(&Mint{})).
		Order("minted_at DESC").Order("number DESC").
		Limit(limit).Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("index: gallery: %w", err)
	}
	return rows, nil
}

// Lookup returns the projection of one asset.
func (s *Store) Lookup(ctx context.Context, asset string) (*Mint, error) {
	var row Mint
	err := s.db.WithContext(ctx).Where("asset = ?", asset).First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// FeeTotals sums collected fees per role over the query window.
func (s *Store) FeeTotals(ctx context.Context, q Query) ([]FeeTotal, error) {
	var totals []FeeTotal
	err := q.apply(s.db.WithContext(ctx).Model(&Mint{})).
		Select("role, COUNT(*) AS mints, COALESCE(SUM(treasury_fee), 0) AS treasury_fee, COALESCE(SUM(antiscam_fee), 0) AS antiscam_fee").
		Group("role").
		Order("role").
		Scan(&totals).Error
	if err != nil {
		return nil, fmt.Errorf("index: fee totals: %w", err)
	}
	return totals, nil
}

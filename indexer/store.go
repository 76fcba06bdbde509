package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"peerswap/core/events"
	"peerswap/core/types"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

var (
	// ErrDSNRequired is returned when no database location is configured.
	ErrDSNRequired = errors.New("indexer: dsn must be configured")
	// ErrInvalidQuery rejects malformed list parameters.
	ErrInvalidQuery = errors.New("indexer: invalid query")
)

// Store persists committed execution events and serves them back in commit
// order. It implements events.Emitter so it can be attached to the node's
// event hub.
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

// Open connects to dsn. DSNs in postgres URL or keyword form use the postgres
// driver; anything else is treated as a sqlite file or URI.
func Open(dsn string, logger *slog.Logger) (*Store, error) {
	trimmed := strings.TrimSpace(dsn)
	if trimmed == "" {
		return nil, ErrDSNRequired
	}
	db, err := gorm.Open(dialector(trimmed), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("indexer: open database: %w", err)
	}
	return NewStore(db, logger)
}

// NewStore wraps an existing gorm handle and applies migrations.
func NewStore(db *gorm.DB, logger *slog.Logger) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("indexer: database must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("indexer: migrate: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

func dialector(dsn string) gorm.Dialector {
	lower := strings.ToLower(dsn)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") || strings.Contains(lower, "host=") {
		return postgres.Open(dsn)
	}
	return sqlite.Open(dsn)
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Emit implements events.Emitter. Failures are logged; the execution that
// produced the event has already committed.
func (s *Store) Emit(evt events.Event) {
	exec, ok := evt.(events.Executed)
	if !ok || s == nil {
		return
	}
	if err := s.Record(context.Background(), exec); err != nil {
		s.logger.Error("indexer: record event",
			slog.String("type", exec.EventType()),
			slog.Uint64("height", exec.Height),
			slog.String("error", err.Error()))
	}
}

// Record stores one execution together with its transfers.
func (s *Store) Record(ctx context.Context, exec events.Executed) error {
	wire := exec.Event()
	if wire == nil {
		return nil
	}
	attrs, err := json.Marshal(wire.Attributes)
	if err != nil {
		return fmt.Errorf("indexer: encode attributes: %w", err)
	}
	rec := EventRecord{
		Height:     exec.Height,
		BlockTime:  exec.Time.UTC(),
		Type:       wire.Type,
		Sender:     exec.Sender,
		OfferID:    parseOfferID(wire.Attr(types.AttrOfferID)),
		Attributes: string(attrs),
		Transfers:  make([]TransferRecord, 0, len(exec.Transfers)),
	}
	for i, tr := range exec.Transfers {
		rec.Transfers = append(rec.Transfers, TransferRecord{
			Position:  i,
			Recipient: tr.Recipient,
			Asset:     tr.Asset,
			Amount:    tr.Amount,
		})
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("indexer: insert event: %w", err)
	}
	return nil
}

func parseOfferID(raw string) *uint32 {
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return nil
	}
	id := uint32(v)
	return &id
}

// ListQuery filters and pages ListEvents.
type ListQuery struct {
	Type    string
	OfferID *uint32
	Offset  int
	Limit   int
}

// ListEvents returns stored events in commit order.
func (s *Store) ListEvents(ctx context.Context, q ListQuery) ([]EventRecord, error) {
	if q.Offset < 0 {
		return nil, fmt.Errorf("%w: offset must not be negative", ErrInvalidQuery)
	}
	limit := q.Limit
	switch {
	case limit < 0:
		return nil, fmt.Errorf("%w: limit must not be negative", ErrInvalidQuery)
	case limit == 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}
	tx := s.db.WithContext(ctx).
		Preload("Transfers", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Order("id ASC")
	if typ := strings.TrimSpace(q.Type); typ != "" {
		tx = tx.Where(&EventRecord{Type: typ})
	}
	if q.OfferID != nil {
		tx = tx.Where("offer_id = ?", *q.OfferID)
	}
	var out []EventRecord
	if err := tx.Offset(q.Offset).Limit(limit).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("indexer: list events: %w", err)
	}
	return out, nil
}

// Count reports how many events of typ are stored; an empty typ counts all.
func (s *Store) Count(ctx context.Context, typ string) (int64, error) {
	tx := s.db.WithContext(ctx).Model(&EventRecord{})
	if typ = strings.TrimSpace(typ); typ != "" {
		tx = tx.Where(&EventRecord{Type: typ})
	}
	var n int64
	if err := tx.Count(&n).Error; err != nil {
		return 0, fmt.Errorf("indexer: count events: %w", err)
	}
	return n, nil
}

// AttributeMap decodes the stored attributes.
func (r EventRecord) AttributeMap() (map[string]string, error) {
	out := make(map[string]string)
	if r.Attributes == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(r.Attributes), &out); err != nil {
		return nil, err
	}
	return out, nil
}

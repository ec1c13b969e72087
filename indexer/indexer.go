package indexer

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"nftmarket/core/events"
	"nftmarket/native/marketplace"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
	backfillPage    = 500
)

// Open connects to the index database selected by driver.
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("indexer: unsupported driver %q", driver)
	}
	return gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
}

// Indexer projects committed offer events into SQL tables.
type Indexer struct {
	db     *gorm.DB
	logger *slog.Logger
	nowFn  func() time.Time
}

// New migrates the schema and returns an indexer writing to db.
func New(db *gorm.DB) (*Indexer, error) {
	if db == nil {
		return nil, fmt.Errorf("indexer: database must not be nil")
	}
	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("indexer: migrate: %w", err)
	}
	return &Indexer{
		db:     db,
		logger: slog.Default().With("component", "indexer"),
		nowFn:  time.Now,
	}, nil
}

// SetNowFunc overrides the clock used for event timestamps.
func (ix *Indexer) SetNowFunc(now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	ix.nowFn = now
}

// Emit implements events.Emitter. Only offer lifecycle events are indexed.
func (ix *Indexer) Emit(evt events.Event) {
	payload, ok := evt.(events.Payload)
	if !ok {
		return
	}
	data := payload.Event()
	if data == nil || !strings.HasPrefix(data.Type, "market.offer.") {
		return
	}
	if err := ix.Record(context.Background(), data.Type, data.Attributes); err != nil {
		ix.logger.Warn("index offer event", "type", data.Type, "error", err)
	}
}

// Record upserts the offer projection and appends the event to the offer
// history in a single database transaction.
func (ix *Indexer) Record(ctx context.Context, eventType string, attrs map[string]string) error {
	id, err := strconv.ParseUint(attrs["id"], 10, 64)
	if err != nil {
		return fmt.Errorf("indexer: offer id: %w", err)
	}
	updated := ix.nowFn().UTC()
	if unix, err := strconv.ParseInt(attrs["updatedAt"], 10, 64); err == nil && unix > 0 {
		updated = time.Unix(unix, 0).UTC()
	}
	record := OfferRecord{
		OfferID:    id,
		Seller:     hexField(attrs["seller"]),
		Collection: hexField(attrs["contract"]),
		AssetID:    attrs["assetId"],
		Kind:       attrs["kind"],
		Quantity:   attrs["quantity"],
		Price:      attrs["price"],
		Status:     attrs["status"],
		Buyer:      hexField(attrs["buyer"]),
		CreatedAt:  updated,
		UpdatedAt:  updated,
	}
	encoded, err := json.Marshal(attrs)
	if err != nil {
		return err
	}
	entryID, err := uuid.NewV7()
	if err != nil {
		return err
	}
	entry := OfferEvent{
		ID:         entryID,
		OfferID:    id,
		Type:       eventType,
		Attributes: string(encoded),
		RecordedAt: ix.nowFn().UTC(),
	}
	return ix.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "offer_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"price", "status", "buyer", "updated_at"}),
		}).Create(&record).Error
		if err != nil {
			return err
		}
		return tx.Create(&entry).Error
	})
}

// OfferSource reads offers from the node state.
type OfferSource interface {
	MarketNumberOfOffer() (uint64, error)
	MarketBatchGetOffer(start, end uint64) ([]*marketplace.Offer, error)
}

// Backfill upserts the projection of every offer held by src, covering
// offers created while the index was offline or before it existed. History
// rows are not synthesised. It returns the number of offers written.
func (ix *Indexer) Backfill(ctx context.Context, src OfferSource) (int, error) {
	count, err := src.MarketNumberOfOffer()
	if err != nil {
		return 0, fmt.Errorf("indexer: backfill: %w", err)
	}
	written := 0
	for start := uint64(0); start < count; start += backfillPage {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		end := start + backfillPage - 1
		if end >= count {
			end = count - 1
		}
		offers, err := src.MarketBatchGetOffer(start, end)
		if err != nil {
			return written, fmt.Errorf("indexer: backfill offers %d-%d: %w", start, end, err)
		}
		records := make([]OfferRecord, 0, len(offers))
		for _, offer := range offers {
			records = append(records, recordFromOffer(offer))
		}
		err = ix.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "offer_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"price", "status", "buyer", "updated_at"}),
		}).Create(&records).Error
		if err != nil {
			return written, fmt.Errorf("indexer: backfill offers %d-%d: %w", start, end, err)
		}
		written += len(records)
	}
	if written > 0 {
		ix.logger.Info("offer index backfilled", "offers", written)
	}
	return written, nil
}

func recordFromOffer(o *marketplace.Offer) OfferRecord {
	record := OfferRecord{
		OfferID:    o.ID,
		Seller:     hexField(hex.EncodeToString(o.Seller[:])),
		Collection: hexField(hex.EncodeToString(o.AssetContract[:])),
		AssetID:    bigString(o.AssetID),
		Kind:       o.Kind().String(),
		Quantity:   bigString(o.Quantity),
		Price:      bigString(o.Price),
		Status:     o.Status.String(),
		CreatedAt:  time.Unix(o.CreatedAt, 0).UTC(),
		UpdatedAt:  time.Unix(o.UpdatedAt, 0).UTC(),
	}
	if o.Status == marketplace.OfferSold {
		record.Buyer = hexField(hex.EncodeToString(o.Buyer[:]))
	}
	return record
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func hexField(value string) string {
	if value == "" {
		return ""
	}
	return "0x" + strings.ToLower(value)
}

// Filter narrows ListOffers. Empty fields match everything.
type Filter struct {
	Seller     string
	Collection string
	Status     string
	Offset     int
	Limit      int
}

// ListOffers returns offer records matching filter in ascending id order.
func (ix *Indexer) ListOffers(ctx context.Context, filter Filter) ([]OfferRecord, error) {
	query := ix.db.WithContext(ctx).Model(&OfferRecord{})
	if filter.Seller != "" {
		query = query.Where("seller = ?", strings.ToLower(filter.Seller))
	}
	if filter.Collection != "" {
		query = query.Where("collection = ?", strings.ToLower(filter.Collection))
	}
	if filter.Status != "" {
		status, err := marketplace.ParseOfferStatus(filter.Status)
		if err != nil {
			return nil, err
		}
		query = query.Where("status = ?", status.String())
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	var records []OfferRecord
	if err := query.Order("offer_id ASC").Offset(offset).Limit(limit).Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// History returns the recorded events of an offer in arrival order. Event
// ids are time-ordered so ties on RecordedAt keep insertion order.
func (ix *Indexer) History(ctx context.Context, offerID uint64) ([]OfferEvent, error) {
	var out []OfferEvent
	err := ix.db.WithContext(ctx).
		Where("offer_id = ?", offerID).
		Order("recorded_at ASC, id ASC").
		Find(&out).Error
	return out, err
}

package indexer

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OfferRecord is the latest projection of an offer.
type OfferRecord struct {
	OfferID    uint64 `gorm:"primaryKey;autoIncrement:false"`
	Seller     string `gorm:"size:42;index"`
	Collection string `gorm:"size:42;index"`
	AssetID    string `gorm:"size:80"`
	Kind       string `gorm:"size:16"`
	Quantity   string `gorm:"size:80"`
	Price      string `gorm:"size:80"`
	Status     string `gorm:"size:16;index"`
	Buyer      string `gorm:"size:42"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// OfferEvent is one entry of the append-only offer history.
type OfferEvent struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	OfferID    uint64    `gorm:"index"`
	Type       string    `gorm:"size:64;index"`
	Attributes string
	RecordedAt time.Time
}

// AutoMigrate creates or updates the index tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&OfferRecord{}, &OfferEvent{})
}

package indexer

import (
	"time"

	"gorm.io/gorm"
)

// EventRecord is one committed execution as seen by the indexer.
type EventRecord struct {
	ID         uint64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Height     uint64           `gorm:"index" json:"height"`
	BlockTime  time.Time        `json:"block_time"`
	Type       string           `gorm:"index;size:64" json:"type"`
	Sender     string           `gorm:"index;size:128" json:"sender"`
	OfferID    *uint32          `gorm:"index" json:"offer_id,omitempty"`
	Attributes string           `gorm:"type:text" json:"attributes"`
	Transfers  []TransferRecord `gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE" json:"transfers"`
	CreatedAt  time.Time        `json:"created_at"`
}

// TransferRecord is a settlement instruction attached to an event.
type TransferRecord struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement" json:"-"`
	EventID   uint64 `gorm:"index" json:"-"`
	Position  int    `json:"-"`
	Recipient string `gorm:"index;size:128" json:"recipient"`
	Asset     string `gorm:"size:128" json:"asset"`
	Amount    string `gorm:"size:40" json:"amount"`
}

// AutoMigrate creates or upgrades the indexer tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&EventRecord{}, &TransferRecord{})
}

package index

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Mint is the read-side projection of one committed mint.
type Mint struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Asset       string    `gorm:"uniqueIndex;not null"`
	Collection  string    `gorm:"index;not null"`
	Role        string    `gorm:"index;not null"`
	Owner       string    `gorm:"index;not null"`
	Number      uint64    `gorm:"not null"`
	TreasuryFee uint64    `gorm:"not null"`
	AntiscamFee uint64    `gorm:"not null"`
	MintedAt    time.Time `gorm:"index;not null"`
	CreatedAt   time.Time
}

// FeeTotal sums the fees collected for one role.
type FeeTotal struct {
	Role        string `json:"role"`
	Mints       int64  `json:"mints"`
	TreasuryFee uint64 `json:"treasuryFee"`
	AntiscamFee uint64 `json:"antiscamFee"`
}

// AutoMigrate creates or updates the projection tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&Mint{})
}

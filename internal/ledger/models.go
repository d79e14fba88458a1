package ledger

import "time"

// TransferRecord is one journaled transfer.
type TransferRecord struct {
	ID           string `gorm:"primaryKey"`
	BatchID      string `gorm:"index;not null"`
	Sequence     int    `gorm:"not null"`
	FromIdentity string `gorm:"index;not null"`
	ToIdentity   string `gorm:"index;not null"`
	Amount       string `gorm:"not null"`
	Memo         string
	CreatedAt    time.Time
}

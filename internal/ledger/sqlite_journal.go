package ledger

import (
	"fmt"

	"custodial-lottery/internal/models"

	"github.com/google/logger"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// SqliteJournal records every transfer batch in a sqlite database. It does
// not hold balances; the host ledger that settles the transfers reads the
// journal.
type SqliteJournal struct {
	db *gorm.DB
}

// NewSqliteJournal opens the database at dsn and migrates the journal table.
func NewSqliteJournal(dsn string) (*SqliteJournal, error) {
	logger.Infof("opening transfer journal at %s", dsn)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if err := db.AutoMigrate(&TransferRecord{}); err != nil {
		return nil, fmt.Errorf("migrate journal: %w", err)
	}
	return &SqliteJournal{db: db}, nil
}

// Transfer writes the batch in one database transaction.
func (j *SqliteJournal) Transfer(transfers []models.Transfer) error {
	if len(transfers) == 0 {
		return nil
	}
	batchID := uuid.NewString()
	records := make([]*TransferRecord, 0, len(transfers))
	for i, t := range transfers {
		records = append(records, &TransferRecord{
			ID:           uuid.NewString(),
			BatchID:      batchID,
			Sequence:     i,
			FromIdentity: t.From.String(),
			ToIdentity:   t.To.String(),
			Amount:       t.Amount.String(),
			Memo:         t.Memo,
		})
	}

	err := j.db.Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(records, 100).Error
	})
	if err != nil {
		return fmt.Errorf("journal batch %s: %w", batchID, err)
	}
	logger.Infof("journaled %d transfers in batch %s", len(records), batchID)
	return nil
}

// Transfers returns journaled transfers to id, oldest first.
func (j *SqliteJournal) Transfers(to models.IdentityKey) ([]models.Transfer, error) {
	var records []*TransferRecord
	err := j.db.Where("to_identity = ?", to.String()).Order("created_at, sequence").Find(&records).Error
	if err != nil {
		return nil, err
	}
	return decodeRecords(records)
}

// All returns every journaled transfer, oldest first.
func (j *SqliteJournal) All() ([]models.Transfer, error) {
	var records []*TransferRecord
	if err := j.db.Order("created_at, sequence").Find(&records).Error; err != nil {
		return nil, err
	}
	return decodeRecords(records)
}

func decodeRecords(records []*TransferRecord) ([]models.Transfer, error) {
	out := make([]models.Transfer, 0, len(records))
	for _, r := range records {
		from, err := models.ParseIdentityKey(r.FromIdentity)
		if err != nil {
			return nil, err
		}
		to, err := models.ParseIdentityKey(r.ToIdentity)
		if err != nil {
			return nil, err
		}
		amount, err := models.ParseAmount(r.Amount)
		if err != nil {
			return nil, err
		}
		out = append(out, models.Transfer{From: from, To: to, Amount: amount, Memo: r.Memo})
	}
	return out, nil
}

// Close closes the underlying database.
func (j *SqliteJournal) Close() error {
	sqlDB, err := j.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

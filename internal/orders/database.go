package orders

import (
	"errors"

	"gorm.io/gorm"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

// UpsertOrder writes the current state of an order, keyed by security and
// order id.
func (d *Database) UpsertOrder(record *OrderRecord) error {
	var existing OrderRecord
	err := d.db.Where("security_id = ? AND order_id = ?", record.SecurityID, record.OrderID).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return d.db.Create(record).Error
	}
	if err != nil {
		return err
	}
	record.ID = existing.ID
	record.CreatedAt = existing.CreatedAt
	return d.db.Save(record).Error
}

// GetOrder retrieves an order record by security and order id, or nil.
func (d *Database) GetOrder(securityID string, orderID int64) (*OrderRecord, error) {
	var record OrderRecord
	if err := d.db.Where("security_id = ? AND order_id = ?", securityID, orderID).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// UpdateOrderStatus sets just the status of a persisted order.
func (d *Database) UpdateOrderStatus(securityID string, orderID int64, status string) error {
	return d.db.Model(&OrderRecord{}).
		Where("security_id = ? AND order_id = ?", securityID, orderID).
		Update("status", status).Error
}

// CreateTrades persists a batch of executions in one transaction.
func (d *Database) CreateTrades(trades []TradeRecord) error {
	if len(trades) == 0 {
		return nil
	}
	return d.db.Create(&trades).Error
}

// GetTradesBySecurity returns the persisted executions of one instrument,
// oldest first.
func (d *Database) GetTradesBySecurity(securityID string) ([]TradeRecord, error) {
	var trades []TradeRecord
	if err := d.db.Where("security_id = ?", securityID).Order("id asc").Find(&trades).Error; err != nil {
		return nil, err
	}
	return trades, nil
}

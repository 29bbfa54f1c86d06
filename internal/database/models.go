package database

import "gorm.io/gorm"

// SecurityRecord is an instrument's reference data.
type SecurityRecord struct {
	gorm.Model `json:"-"`
	SecurityID string `gorm:"uniqueIndex" json:"security_id"`
	TickSize   int    `json:"tick_size"`
	LotSize    int    `json:"lot_size"`
}

// BrokerRecord is a trading participant and its credit balance.
type BrokerRecord struct {
	gorm.Model `json:"-"`
	BrokerID   int64 `gorm:"uniqueIndex" json:"broker_id"`
	Credit     int64 `json:"credit"`
}

// ShareholderPosition is one shareholder's holding in one instrument.
type ShareholderPosition struct {
	gorm.Model    `json:"-"`
	ShareholderID int64  `gorm:"index:idx_holder_security,unique" json:"shareholder_id"`
	SecurityID    string `gorm:"index:idx_holder_security,unique" json:"security_id"`
	Quantity      int    `json:"quantity"`
}

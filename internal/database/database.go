package database

import (
	"fmt"
	"os"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/openclob/venue/internal/engine"
	"github.com/openclob/venue/internal/orders"
)

// NewDatabase initializes and returns a new GORM DB connection. The database
// file comes from VENUE_DB, defaulting to venue.db.
func NewDatabase() (*gorm.DB, error) {
	path := os.Getenv("VENUE_DB")
	if path == "" {
		path = "venue.db"
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	err = db.AutoMigrate(
		&SecurityRecord{},
		&BrokerRecord{},
		&ShareholderPosition{},
		&orders.OrderRecord{},
		&orders.TradeRecord{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

// LoadRegistry builds the in-memory entity registry from persisted reference
// data. The engine works exclusively against this registry; the database is
// never consulted on the matching path.
func LoadRegistry(db *gorm.DB) (*engine.Registry, error) {
	registry := engine.NewRegistry()

	var securities []SecurityRecord
	if err := db.Find(&securities).Error; err != nil {
		return nil, fmt.Errorf("failed to load securities: %w", err)
	}
	for _, record := range securities {
		registry.AddSecurity(engine.NewSecurity(record.SecurityID, record.TickSize, record.LotSize))
	}

	var brokers []BrokerRecord
	if err := db.Find(&brokers).Error; err != nil {
		return nil, fmt.Errorf("failed to load brokers: %w", err)
	}
	for _, record := range brokers {
		registry.AddBroker(engine.NewBroker(record.BrokerID, record.Credit))
	}

	var positions []ShareholderPosition
	if err := db.Find(&positions).Error; err != nil {
		return nil, fmt.Errorf("failed to load shareholder positions: %w", err)
	}
	for _, record := range positions {
		shareholder := registry.Shareholder(record.ShareholderID)
		if shareholder == nil {
			shareholder = engine.NewShareholder(record.ShareholderID)
			registry.AddShareholder(shareholder)
		}
		shareholder.IncPosition(record.SecurityID, record.Quantity)
	}

	return registry, nil
}

// SeedReferenceData inserts reference data when none exists yet, so a fresh
// install comes up with a tradable instrument and funded participants.
func SeedReferenceData(db *gorm.DB) error {
	var count int64
	if err := db.Model(&SecurityRecord{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	securities := []SecurityRecord{
		{SecurityID: "IRO3", TickSize: 1, LotSize: 1},
		{SecurityID: "IRO7", TickSize: 5, LotSize: 10},
	}
	if err := db.Create(&securities).Error; err != nil {
		return err
	}

	brokers := []BrokerRecord{
		{BrokerID: 1, Credit: 100_000_000},
		{BrokerID: 2, Credit: 100_000_000},
		{BrokerID: 3, Credit: 100_000_000},
	}
	if err := db.Create(&brokers).Error; err != nil {
		return err
	}

	positions := []ShareholderPosition{
		{ShareholderID: 1, SecurityID: "IRO3", Quantity: 100_000},
		{ShareholderID: 2, SecurityID: "IRO3", Quantity: 100_000},
		{ShareholderID: 3, SecurityID: "IRO7", Quantity: 100_000},
	}
	return db.Create(&positions).Error
}

package schema

import (
	"time"

	"gorm.io/datatypes"
)

// InventoryItem represents the inventory_items table
type InventoryItem struct {
	ID                     string         `gorm:"column:id;primaryKey;type:text"`
	Title                  string         `gorm:"column:title;not null;type:text"`
	QuantityString         string         `gorm:"column:quantity_string;not null;type:text"`
	QuantityInt            int64          `gorm:"column:quantity_int;not null"`
	Description            string         `gorm:"column:description;not null;type:text"`
	Serial                 string         `gorm:"column:serial;not null;type:text"`
	Model                  string         `gorm:"column:model;not null;type:text"`
	Make                   string         `gorm:"column:make;not null;type:text"`
	Price                  Decimal        `gorm:"column:price;not null"`
	Insured                bool           `gorm:"column:insured;not null"`
	AssetID                string         `gorm:"column:asset_id;not null;type:text"`
	Notes                  string         `gorm:"column:notes;not null;type:text"`
	ImageURL               string         `gorm:"column:image_url;not null;type:text"`
	SecondaryPhotoURLs     datatypes.JSON `gorm:"column:secondary_photo_urls;not null"`
	HasUsedAI              bool           `gorm:"column:has_used_ai;not null"`
	CreatedAt              *time.Time     `gorm:"column:created_at;autoCreateTime:false"`
	PurchaseDate           *time.Time     `gorm:"column:purchase_date"`
	WarrantyExpirationDate *time.Time     `gorm:"column:warranty_expiration_date"`
	PurchaseLocation       string         `gorm:"column:purchase_location;not null;type:text"`
	Condition              string         `gorm:"column:condition;not null;type:text"`
	HasWarranty            bool           `gorm:"column:has_warranty;not null"`
	// Attachments is a JSON array of {url, original_name, created_at}
	Attachments         datatypes.JSON `gorm:"column:attachments;not null"`
	DimensionLength     string         `gorm:"column:dimension_length;not null;type:text"`
	DimensionWidth      string         `gorm:"column:dimension_width;not null;type:text"`
	DimensionHeight     string         `gorm:"column:dimension_height;not null;type:text"`
	DimensionUnit       string         `gorm:"column:dimension_unit;not null;type:text"`
	WeightValue         Decimal        `gorm:"column:weight_value;not null"`
	WeightUnit          string         `gorm:"column:weight_unit;not null;type:text"`
	Color               string         `gorm:"column:color;not null;type:text"`
	StorageRequirements string         `gorm:"column:storage_requirements;not null;type:text"`
	IsFragile           bool           `gorm:"column:is_fragile;not null"`
	MovingPriority      int64          `gorm:"column:moving_priority;not null"`
	RoomDestination     string         `gorm:"column:room_destination;not null;type:text"`
	ReplacementCost     Decimal        `gorm:"column:replacement_cost;not null"`
	DepreciationRate    Decimal        `gorm:"column:depreciation_rate;not null"`
	// LocationID references inventory_locations.id
	LocationID *string `gorm:"column:location_id;type:text;index"`
	// HomeID references homes.id
	HomeID *string `gorm:"column:home_id;type:text;index"`
}

func (InventoryItem) TableName() string {
	return "inventory_items"
}

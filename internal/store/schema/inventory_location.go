package schema

import "gorm.io/datatypes"

// InventoryLocation represents the inventory_locations table
type InventoryLocation struct {
	ID          string `gorm:"column:id;primaryKey;type:text"`
	Name        string `gorm:"column:name;not null;type:text"`
	Description string `gorm:"column:description;not null;type:text"`
	// SFSymbolName is the optional icon reference
	SFSymbolName       *string        `gorm:"column:sf_symbol_name;type:text"`
	ImageURL           string         `gorm:"column:image_url;not null;type:text"`
	SecondaryPhotoURLs datatypes.JSON `gorm:"column:secondary_photo_urls;not null"`
	// HomeID references homes.id, NULL when the location has no home
	HomeID *string `gorm:"column:home_id;type:text;index"`
}

func (InventoryLocation) TableName() string {
	return "inventory_locations"
}

package schema

import (
	"time"

	"gorm.io/datatypes"
)

// Home represents the homes table
type Home struct {
	// ID is the stable identifier (lowercase canonical UUID)
	ID       string `gorm:"column:id;primaryKey;type:text"`
	Name     string `gorm:"column:name;not null;type:text"`
	Address1 string `gorm:"column:address1;not null;type:text"`
	Address2 string `gorm:"column:address2;not null;type:text"`
	City     string `gorm:"column:city;not null;type:text"`
	State    string `gorm:"column:state;not null;type:text"`
	Zip      string `gorm:"column:zip;not null;type:text"`
	Country  string `gorm:"column:country;not null;type:text"`
	// PurchaseDate is nullable; stored in UTC
	PurchaseDate  *time.Time `gorm:"column:purchase_date"`
	PurchasePrice Decimal    `gorm:"column:purchase_price;not null"`
	// ImageURL references the primary photo
	ImageURL string `gorm:"column:image_url;not null;type:text"`
	// SecondaryPhotoURLs is an ordered JSON array of photo references
	SecondaryPhotoURLs datatypes.JSON `gorm:"column:secondary_photo_urls;not null"`
	IsPrimary          bool           `gorm:"column:is_primary;not null"`
	ColorName          string         `gorm:"column:color_name;not null;type:text"`
}

func (Home) TableName() string {
	return "homes"
}

package schema

// InventoryLabel represents the inventory_labels table
type InventoryLabel struct {
	ID          string `gorm:"column:id;primaryKey;type:text"`
	Name        string `gorm:"column:name;not null;type:text"`
	Description string `gorm:"column:description;not null;type:text"`
	// Color is a packed 0xRRGGBBAA value
	Color *int64 `gorm:"column:color"`
	Emoji string `gorm:"column:emoji;not null;type:text"`
}

func (InventoryLabel) TableName() string {
	return "inventory_labels"
}

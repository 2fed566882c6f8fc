package schema

import "time"

// KeyValue is a durable flag or counter owned by the migration engine
type KeyValue struct {
	Key       string    `gorm:"column:state_key;primaryKey;type:text"`
	Value     string    `gorm:"column:state_value;type:text;not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (KeyValue) TableName() string {
	return "key_value_store"
}

// TargetModels lists the entity and join tables in insert order
func TargetModels() []interface{} {
	return []interface{}{
		&InventoryLabel{},
		&Home{},
		&InsurancePolicy{},
		&InventoryLocation{},
		&InventoryItem{},
		&ItemLabel{},
		&HomePolicy{},
	}
}

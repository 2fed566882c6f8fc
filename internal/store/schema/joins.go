package schema

// ItemLabel represents the item_labels join table
type ItemLabel struct {
	ID      string `gorm:"column:id;primaryKey;type:text"`
	ItemID  string `gorm:"column:item_id;not null;type:text;uniqueIndex:idx_item_labels_pair,priority:1"`
	LabelID string `gorm:"column:label_id;not null;type:text;uniqueIndex:idx_item_labels_pair,priority:2"`
}

func (ItemLabel) TableName() string {
	return "item_labels"
}

// HomePolicy represents the home_policies join table
type HomePolicy struct {
	ID       string `gorm:"column:id;primaryKey;type:text"`
	HomeID   string `gorm:"column:home_id;not null;type:text;uniqueIndex:idx_home_policies_pair,priority:1"`
	PolicyID string `gorm:"column:policy_id;not null;type:text;uniqueIndex:idx_home_policies_pair,priority:2"`
}

func (HomePolicy) TableName() string {
	return "home_policies"
}

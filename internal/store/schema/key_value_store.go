package schema

import "time"

// KeyValueStore represents the key_value_store table.
// The watcher keeps its optional block cursor checkpoint here under "block_cursor:<chain>".
type KeyValueStore struct {
	// Key is the entry name
	Key string `gorm:"column:key;primaryKey;type:text"`
	// Value is the entry value
	Value string `gorm:"column:value;type:text;not null"`
	// UpdatedAt is the timestamp of the last write
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
	// CreatedAt is the timestamp of the first write
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName specifies the table name for the KeyValueStore model
func (KeyValueStore) TableName() string {
	return "key_value_store"
}

package model

import "time"

// StateRecord 播放状态快照表，StateStore=mysql 时使用
type StateRecord struct {
	Key       string     `gorm:"primaryKey;size:191"`
	Value     []byte     `gorm:"type:blob;not null"`
	ExpiresAt *time.Time `gorm:"index"`
	UpdatedAt time.Time
}

// TableName 指定表名
func (StateRecord) TableName() string {
	return "audio_states"
}

package model

import (
	"time"

	"github.com/google/uuid"
)

type UsageRecord struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_usage_user_date"`
	UsageDate time.Time `gorm:"type:date;not null;uniqueIndex:idx_usage_user_date"`
	Messages  int       `gorm:"not null;default:0"`
	Uploads   int       `gorm:"not null;default:0"`
	Repos     int       `gorm:"not null;default:0"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (UsageRecord) TableName() string {
	return "usage_records"
}

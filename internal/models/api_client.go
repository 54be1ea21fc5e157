package models

import (
	"time"

	"github.com/google/uuid"
)

// APIClient is a service allowed to call the profile API
type APIClient struct {
	ID         uuid.UUID `gorm:"type:varchar(36);primarykey" json:"id"`
	Name       string    `gorm:"size:100;not null;uniqueIndex" json:"name"`
	SecretHash string    `gorm:"size:255;not null" json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

func (APIClient) TableName() string {
	return "api_clients"
}

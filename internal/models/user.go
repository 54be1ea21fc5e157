package models

// UserProfile is a user's identity and appearance attributes.
//
// The column set is fixed: id, email, profile_photo, body_type, skin_tone.
// Other services read and write these rows directly, so no bookkeeping
// columns (timestamps, soft delete) are added here. The schema is owned by
// migrations/0001_create_users.sql; this struct must stay in sync with it.
type UserProfile struct {
	ID           uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        string  `gorm:"size:255;not null;index" json:"email"`
	ProfilePhoto *string `gorm:"column:profile_photo;size:1024" json:"profile_photo"`
	BodyType     string  `gorm:"size:50;not null" json:"body_type"`
	SkinTone     string  `gorm:"size:50;not null" json:"skin_tone"`
}

// TableName returns the table name for the UserProfile model
func (UserProfile) TableName() string {
	return "users"
}

// HasPhoto reports whether a profile photo is stored
func (p *UserProfile) HasPhoto() bool {
	return p.ProfilePhoto != nil && *p.ProfilePhoto != ""
}

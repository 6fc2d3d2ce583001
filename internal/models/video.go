package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Video struct {
	ID            uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	UserID        uuid.UUID `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:idx_user_challenge"`
	ChallengeID   string    `json:"challenge_id" gorm:"not null;uniqueIndex:idx_user_challenge"`
	VideoURL      string    `json:"video_url" gorm:"not null"`
	Likes         int64     `json:"likes" gorm:"default:0"`
	PointsAwarded bool      `json:"points_awarded" gorm:"default:false"`
	CreatedAt     time.Time `json:"created_at" gorm:"index"`

	User User `json:"user" gorm:"foreignKey:UserID"`
}

// Like is an edge document: its existence is the only state.
type Like struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	VideoID   uuid.UUID `json:"video_id" gorm:"type:uuid;not null;uniqueIndex:idx_video_viewer"`
	ViewerID  uuid.UUID `json:"viewer_id" gorm:"type:uuid;not null;uniqueIndex:idx_video_viewer"`
	CreatedAt time.Time `json:"created_at"`
}

type Comment struct {
	ID        uuid.UUID  `json:"id" gorm:"type:uuid;primary_key"`
	VideoID   uuid.UUID  `json:"video_id" gorm:"type:uuid;not null;index"`
	UserID    uuid.UUID  `json:"user_id" gorm:"type:uuid;not null"`
	Username  string     `json:"username" gorm:"not null"`
	Text      string     `json:"text" gorm:"type:text;not null"`
	Likes     int64      `json:"likes" gorm:"default:0"`
	ParentID  *uuid.UUID `json:"parent_id" gorm:"type:uuid"`
	CreatedAt time.Time  `json:"created_at"`
}

// Challenge occupies a single slot; an expired record is overwritten in
// place, never accumulated. ChallengeID changes on every rotation and is
// what videos reference.
type Challenge struct {
	Slot        string    `json:"slot" gorm:"primary_key"`
	ChallengeID string    `json:"challenge_id" gorm:"not null"`
	Title       string    `json:"title" gorm:"not null"`
	Description string    `json:"description" gorm:"type:text"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func (v *Video) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

func (l *Like) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

func (Video) TableName() string {
	return "videos"
}

func (Like) TableName() string {
	return "likes"
}

func (Comment) TableName() string {
	return "comments"
}

func (Challenge) TableName() string {
	return "challenges"
}

package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// ErrSelfFollow is returned when a follow edge would point back at its follower.
var ErrSelfFollow = errors.New("a user cannot follow themselves")

// Follow is a directed edge: FollowerID receives FollowedID's posts in their feed.
// The composite primary key allows at most one edge per ordered pair.
type Follow struct {
	FollowerID uint      `gorm:"primaryKey;autoIncrement:false" json:"follower_id"`
	FollowedID uint      `gorm:"primaryKey;autoIncrement:false;index:idx_follows_followed" json:"followed_id"`
	CreatedAt  time.Time `json:"created_at"`

	Follower User `gorm:"foreignKey:FollowerID;constraint:OnDelete:CASCADE" json:"-"`
	Followed User `gorm:"foreignKey:FollowedID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for GORM
func (Follow) TableName() string {
	return "follows"
}

// BeforeCreate rejects self-loops before they reach the database.
func (f *Follow) BeforeCreate(_ *gorm.DB) error {
	if f.FollowerID == f.FollowedID {
		return ErrSelfFollow
	}
	return nil
}

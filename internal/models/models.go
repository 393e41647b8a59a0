package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MediaObject references a file held by the external media store. PublicID is the
// only handle able to delete the remote object.
type MediaObject struct {
	URL      string `bson:"url" json:"url"`
	PublicID string `bson:"publicId" json:"publicId"`
}

// IsZero reports whether the reference points at nothing.
func (m MediaObject) IsZero() bool {
	return m.URL == "" && m.PublicID == ""
}

// Account represents a registered user and the channel they own.
type Account struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty" json:"_id"`
	Username     string               `bson:"username" json:"username"`
	Email        string               `bson:"email" json:"email"`
	FullName     string               `bson:"fullName" json:"fullName"`
	Avatar       MediaObject          `bson:"avatar" json:"avatar"`
	CoverImage   *MediaObject         `bson:"coverImage,omitempty" json:"coverImage,omitempty"`
	Password     string               `bson:"password" json:"-"`
	RefreshToken string               `bson:"refreshToken,omitempty" json:"-"`
	WatchHistory []primitive.ObjectID `bson:"watchHistory" json:"watchHistory"`
	CreatedAt    time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// Video is a published (or draft) upload owned by exactly one account.
type Video struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Owner       primitive.ObjectID `bson:"owner" json:"owner"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description" json:"description"`
	Duration    float64            `bson:"duration" json:"duration"`
	Views       int64              `bson:"views" json:"views"`
	IsPublished bool               `bson:"isPublished" json:"isPublished"`
	VideoFile   MediaObject        `bson:"videoFile" json:"videoFile"`
	Thumbnail   MediaObject        `bson:"thumbnail" json:"thumbnail"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Comment is free text left by an account on a video.
type Comment struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Video     primitive.ObjectID `bson:"video" json:"video"`
	Owner     primitive.ObjectID `bson:"owner" json:"owner"`
	Content   string             `bson:"content" json:"content"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Like records that an account liked either a video or a comment, never both.
type Like struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty" json:"_id"`
	LikedBy   primitive.ObjectID  `bson:"likedBy" json:"likedBy"`
	Video     *primitive.ObjectID `bson:"video,omitempty" json:"video,omitempty"`
	Comment   *primitive.ObjectID `bson:"comment,omitempty" json:"comment,omitempty"`
	CreatedAt time.Time           `bson:"createdAt" json:"createdAt"`
}

// Subscription is a directed subscriber -> channel edge.
type Subscription struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Subscriber primitive.ObjectID `bson:"subscriber" json:"subscriber"`
	Channel    primitive.ObjectID `bson:"channel" json:"channel"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
}

// SessionTokens groups the bearer credentials issued to authenticated users.
type SessionTokens struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshToken     string    `json:"refreshToken"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}

package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// The types below are read-only projections assembled by aggregation pipelines.

// OwnerSummary is the trimmed owner profile joined onto video and comment listings.
type OwnerSummary struct {
	ID       primitive.ObjectID `bson:"_id" json:"_id"`
	Username string             `bson:"username" json:"username"`
	FullName string             `bson:"fullName,omitempty" json:"fullName,omitempty"`
	Avatar   MediaObject        `bson:"avatar" json:"avatar"`
}

// ChannelProfile is the public view of an account looked up by username.
type ChannelProfile struct {
	ID                        primitive.ObjectID `bson:"_id" json:"_id"`
	Username                  string             `bson:"username" json:"username"`
	FullName                  string             `bson:"fullName" json:"fullName"`
	Email                     string             `bson:"email" json:"email"`
	Avatar                    MediaObject        `bson:"avatar" json:"avatar"`
	CoverImage                *MediaObject       `bson:"coverImage,omitempty" json:"coverImage,omitempty"`
	SubscribersCount          int64              `bson:"subscribersCount" json:"subscribersCount"`
	ChannelsSubscribedToCount int64              `bson:"channelsSubscribedToCount" json:"channelsSubscribedToCount"`
	IsSubscribed              bool               `bson:"isSubscribed" json:"isSubscribed"`
	CreatedAt                 time.Time          `bson:"createdAt" json:"createdAt"`
}

// VideoCard is a video enriched with its owner's username and avatar.
type VideoCard struct {
	Video        `bson:",inline"`
	OwnerDetails OwnerSummary `bson:"ownerDetails" json:"ownerDetails"`
}

// VideoOwner is the owner block of the video detail view.
type VideoOwner struct {
	ID               primitive.ObjectID `bson:"_id" json:"_id"`
	Username         string             `bson:"username" json:"username"`
	FullName         string             `bson:"fullName" json:"fullName"`
	Avatar           MediaObject        `bson:"avatar" json:"avatar"`
	SubscribersCount int64              `bson:"subscribersCount" json:"subscribersCount"`
	IsSubscribed     bool               `bson:"isSubscribed" json:"isSubscribed"`
}

// VideoDetail is the single-video view with like and subscription state for the viewer.
type VideoDetail struct {
	ID          primitive.ObjectID `bson:"_id" json:"_id"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description" json:"description"`
	Duration    float64            `bson:"duration" json:"duration"`
	Views       int64              `bson:"views" json:"views"`
	IsPublished bool               `bson:"isPublished" json:"isPublished"`
	VideoFile   MediaObject        `bson:"videoFile" json:"videoFile"`
	Thumbnail   MediaObject        `bson:"thumbnail" json:"thumbnail"`
	Owner       VideoOwner         `bson:"owner" json:"owner"`
	LikesCount  int64              `bson:"likesCount" json:"likesCount"`
	IsLiked     bool               `bson:"isLiked" json:"isLiked"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
}

// CommentView is a comment enriched with its author and like state.
type CommentView struct {
	ID         primitive.ObjectID `bson:"_id" json:"_id"`
	Content    string             `bson:"content" json:"content"`
	Owner      OwnerSummary       `bson:"owner" json:"owner"`
	LikesCount int64              `bson:"likesCount" json:"likesCount"`
	IsLiked    bool               `bson:"isLiked" json:"isLiked"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
}

// SubscriberView is one entry of a channel's subscriber list.
type SubscriberView struct {
	ID                     primitive.ObjectID `bson:"_id" json:"_id"`
	Username               string             `bson:"username" json:"username"`
	FullName               string             `bson:"fullName" json:"fullName"`
	Avatar                 MediaObject        `bson:"avatar" json:"avatar"`
	SubscribersCount       int64              `bson:"subscribersCount" json:"subscribersCount"`
	SubscribedToSubscriber bool               `bson:"subscribedToSubscriber" json:"subscribedToSubscriber"`
}

// LatestVideo is the short form of a channel's newest published upload.
type LatestVideo struct {
	ID          primitive.ObjectID `bson:"_id" json:"_id"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description" json:"description"`
	Duration    float64            `bson:"duration" json:"duration"`
	Views       int64              `bson:"views" json:"views"`
	VideoFile   MediaObject        `bson:"videoFile" json:"videoFile"`
	Thumbnail   MediaObject        `bson:"thumbnail" json:"thumbnail"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
}

// SubscribedChannel is one entry of the list of channels an account follows.
type SubscribedChannel struct {
	ID          primitive.ObjectID `bson:"_id" json:"_id"`
	Username    string             `bson:"username" json:"username"`
	FullName    string             `bson:"fullName" json:"fullName"`
	Avatar      MediaObject        `bson:"avatar" json:"avatar"`
	LatestVideo *LatestVideo       `bson:"latestVideo,omitempty" json:"latestVideo,omitempty"`
}

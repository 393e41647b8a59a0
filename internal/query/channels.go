package query

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/clipcast/backend/internal/db"
	"github.com/clipcast/backend/internal/models"
)

// ChannelProfile resolves the public profile behind a username, with both
// subscription counts and whether viewer follows the channel.
func ChannelProfile(username string, viewer Viewer) Pipeline {
	return Pipeline{
		Match{Filter: bson.D{{Key: "username", Value: strings.ToLower(strings.TrimSpace(username))}}},
		Lookup{From: db.Subscriptions, LocalField: "_id", ForeignField: "channel", As: "subscribers"},
		Lookup{From: db.Subscriptions, LocalField: "_id", ForeignField: "subscriber", As: "subscribedTo"},
		AddFields{Fields: bson.D{
			{Key: "subscribersCount", Value: sizeOf("$subscribers")},
			{Key: "channelsSubscribedToCount", Value: sizeOf("$subscribedTo")},
			{Key: "isSubscribed", Value: viewerIn(viewer, "$subscribers.subscriber")},
		}},
		Project{Fields: include(
			"username", "fullName", "email", "avatar", "coverImage", "createdAt",
			"subscribersCount", "channelsSubscribedToCount", "isSubscribed",
		)},
	}
}

// WatchHistory resolves an account's watched videos in stored order. Ids that no
// longer point at a video are dropped; repeated ids are kept.
func WatchHistory(accountID primitive.ObjectID) Pipeline {
	resolved := bson.D{{Key: "$first", Value: bson.D{{Key: "$filter", Value: bson.D{
		{Key: "input", Value: "$historyVideos"},
		{Key: "as", Value: "candidate"},
		{Key: "cond", Value: bson.D{{Key: "$eq", Value: bson.A{"$$candidate._id", "$$entry"}}}},
	}}}}}

	return Pipeline{
		Match{Filter: bson.D{{Key: "_id", Value: accountID}}},
		Lookup{
			From:         db.Videos,
			LocalField:   "watchHistory",
			ForeignField: "_id",
			As:           "historyVideos",
			Pipeline: Pipeline{
				Lookup{
					From:         db.Users,
					LocalField:   "owner",
					ForeignField: "_id",
					As:           "ownerDetails",
					Pipeline:     Pipeline{Project{Fields: include("username", "fullName", "avatar")}},
				},
				AddFields{Fields: bson.D{{Key: "ownerDetails", Value: firstOf("$ownerDetails")}}},
			},
		},
		Project{Fields: bson.D{{Key: "history", Value: bson.D{{Key: "$filter", Value: bson.D{
			{Key: "input", Value: bson.D{{Key: "$map", Value: bson.D{
				{Key: "input", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$watchHistory", bson.A{}}}}},
				{Key: "as", Value: "entry"},
				{Key: "in", Value: resolved},
			}}}},
			{Key: "as", Value: "video"},
			{Key: "cond", Value: bson.D{{Key: "$eq", Value: bson.A{
				bson.D{{Key: "$type", Value: "$$video"}}, "object",
			}}}},
		}}}}}},
	}
}

// HistoryResult is the decoded output of WatchHistory.
type HistoryResult struct {
	History []models.VideoCard `bson:"history"`
}

// ChannelSubscribers lists the accounts following channelID. Each entry reports its
// own subscriber count and whether the channel follows it back.
func ChannelSubscribers(channelID primitive.ObjectID, page models.PageRequest) Pipeline {
	return Pipeline{
		Match{Filter: bson.D{{Key: "channel", Value: channelID}}},
		Sort{Keys: []SortKey{{Field: "createdAt", Desc: true}, {Field: "_id", Desc: true}}},
		Lookup{
			From:         db.Users,
			LocalField:   "subscriber",
			ForeignField: "_id",
			As:           "subscriber",
			Pipeline: Pipeline{
				Lookup{From: db.Subscriptions, LocalField: "_id", ForeignField: "channel", As: "subscribedToSubscriber"},
				AddFields{Fields: bson.D{
					{Key: "subscribedToSubscriber", Value: bson.D{{Key: "$in", Value: bson.A{
						channelID, "$subscribedToSubscriber.subscriber",
					}}}},
					{Key: "subscribersCount", Value: sizeOf("$subscribedToSubscriber")},
				}},
				Project{Fields: include("username", "fullName", "avatar", "subscribersCount", "subscribedToSubscriber")},
			},
		},
		Unwind{Path: "$subscriber"},
		ReplaceRoot{NewRoot: "$subscriber"},
		Paginate(page),
	}
}

// SubscribedChannels lists the channels subscriberID follows, each with its newest
// published video when one exists.
func SubscribedChannels(subscriberID primitive.ObjectID, page models.PageRequest) Pipeline {
	return Pipeline{
		Match{Filter: bson.D{{Key: "subscriber", Value: subscriberID}}},
		Sort{Keys: []SortKey{{Field: "createdAt", Desc: true}, {Field: "_id", Desc: true}}},
		Lookup{
			From:         db.Users,
			LocalField:   "channel",
			ForeignField: "_id",
			As:           "subscribedChannel",
			Pipeline: Pipeline{
				Lookup{
					From:         db.Videos,
					LocalField:   "_id",
					ForeignField: "owner",
					As:           "videos",
					Pipeline: Pipeline{
						Match{Filter: bson.D{{Key: "isPublished", Value: true}}},
						Sort{Keys: []SortKey{{Field: "createdAt", Desc: true}, {Field: "_id", Desc: true}}},
						Limit{N: 1},
					},
				},
				AddFields{Fields: bson.D{{Key: "latestVideo", Value: firstOf("$videos")}}},
				Project{Fields: bson.D{
					{Key: "username", Value: 1},
					{Key: "fullName", Value: 1},
					{Key: "avatar", Value: 1},
					{Key: "latestVideo._id", Value: 1},
					{Key: "latestVideo.title", Value: 1},
					{Key: "latestVideo.description", Value: 1},
					{Key: "latestVideo.duration", Value: 1},
					{Key: "latestVideo.views", Value: 1},
					{Key: "latestVideo.videoFile", Value: 1},
					{Key: "latestVideo.thumbnail", Value: 1},
					{Key: "latestVideo.createdAt", Value: 1},
				}},
			},
		},
		Unwind{Path: "$subscribedChannel"},
		ReplaceRoot{NewRoot: "$subscribedChannel"},
		Paginate(page),
	}
}

// VideoComments lists a video's comments newest first, with author and like state.
func VideoComments(videoID primitive.ObjectID, viewer Viewer, page models.PageRequest) Pipeline {
	return Pipeline{
		Match{Filter: bson.D{{Key: "video", Value: videoID}}},
		Sort{Keys: []SortKey{{Field: "createdAt", Desc: true}, {Field: "_id", Desc: true}}},
		Lookup{
			From:         db.Users,
			LocalField:   "owner",
			ForeignField: "_id",
			As:           "owner",
			Pipeline:     Pipeline{Project{Fields: include("username", "fullName", "avatar")}},
		},
		Lookup{From: db.Likes, LocalField: "_id", ForeignField: "comment", As: "likes"},
		AddFields{Fields: bson.D{
			{Key: "likesCount", Value: sizeOf("$likes")},
			{Key: "owner", Value: firstOf("$owner")},
			{Key: "isLiked", Value: viewerIn(viewer, "$likes.likedBy")},
		}},
		Project{Fields: include("content", "createdAt", "owner", "likesCount", "isLiked")},
		Paginate(page),
	}
}

package repositories

import (
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func ifNullArray(field string) bson.D {
	return bson.D{{Key: "$ifNull", Value: bson.A{"$" + field, bson.A{}}}}
}

func sizeOf(field string) bson.D {
	return bson.D{{Key: "$size", Value: ifNullArray(field)}}
}

func withoutID(field string, id primitive.ObjectID) bson.D {
	return bson.D{{Key: "$filter", Value: bson.D{
		{Key: "input", Value: ifNullArray(field)},
		{Key: "cond", Value: bson.D{{Key: "$ne", Value: bson.A{"$$this", id}}}},
	}}}
}

func withID(field string, id primitive.ObjectID) bson.D {
	return bson.D{{Key: "$cond", Value: bson.A{
		bson.D{{Key: "$in", Value: bson.A{id, ifNullArray(field)}}},
		ifNullArray(field),
		bson.D{{Key: "$concatArrays", Value: bson.A{ifNullArray(field), bson.A{id}}}},
	}}}
}

// toggleExpr removes id from field when present and appends it otherwise.
func toggleExpr(field string, id primitive.ObjectID) bson.D {
	return bson.D{{Key: "$cond", Value: bson.A{
		bson.D{{Key: "$in", Value: bson.A{id, ifNullArray(field)}}},
		withoutID(field, id),
		bson.D{{Key: "$concatArrays", Value: bson.A{ifNullArray(field), bson.A{id}}}},
	}}}
}

// toggleLikePipeline flips a like and recomputes likeCount in one update.
func toggleLikePipeline(userID primitive.ObjectID) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$set", Value: bson.D{{Key: "likes", Value: toggleExpr("likes", userID)}}}},
		{{Key: "$set", Value: bson.D{
			{Key: "likeCount", Value: sizeOf("likes")},
			{Key: "updatedAt", Value: "$$NOW"},
		}}},
	}
}

// followPipeline adds or removes id in field and recomputes both follow counters.
func followPipeline(field string, id primitive.ObjectID, add bool) mongo.Pipeline {
	next := withoutID(field, id)
	if add {
		next = withID(field, id)
	}
	return mongo.Pipeline{
		{{Key: "$set", Value: bson.D{{Key: field, Value: next}}}},
		{{Key: "$set", Value: bson.D{
			{Key: "followerCount", Value: sizeOf("followers")},
			{Key: "followingCount", Value: sizeOf("following")},
			{Key: "updatedAt", Value: "$$NOW"},
		}}},
	}
}

// seenPostsPipeline appends the ids not yet in seenPosts and keeps the last limit.
func seenPostsPipeline(ids []primitive.ObjectID, limit int) mongo.Pipeline {
	batch := make(bson.A, 0, len(ids))
	for _, id := range ids {
		batch = append(batch, id)
	}
	fresh := bson.D{{Key: "$filter", Value: bson.D{
		{Key: "input", Value: batch},
		{Key: "cond", Value: bson.D{{Key: "$not", Value: bson.A{
			bson.D{{Key: "$in", Value: bson.A{"$$this", ifNullArray("seenPosts")}}},
		}}}},
	}}}

	return mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "lastUpdated", Value: bson.D{{Key: "$cond", Value: bson.A{
				bson.D{{Key: "$gt", Value: bson.A{bson.D{{Key: "$size", Value: fresh}}, 0}}},
				"$$NOW",
				bson.D{{Key: "$ifNull", Value: bson.A{"$lastUpdated", "$$NOW"}}},
			}}}},
			{Key: "seenPosts", Value: bson.D{{Key: "$concatArrays", Value: bson.A{ifNullArray("seenPosts"), fresh}}}},
			{Key: "createdAt", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$createdAt", "$$NOW"}}}},
			{Key: "updatedAt", Value: "$$NOW"},
		}}},
		{{Key: "$set", Value: bson.D{
			{Key: "seenPosts", Value: bson.D{{Key: "$slice", Value: bson.A{"$seenPosts", -limit}}}},
		}}},
	}
}

func returnAfter() *options.FindOneAndUpdateOptions {
	return options.FindOneAndUpdate().SetReturnDocument(options.After)
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

func duplicate(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

func idFilter(ids []primitive.ObjectID) bson.M {
	return bson.M{"_id": bson.M{"$in": ids}}
}

func pageOptions(skip, limit int) *options.FindOptions {
	opts := options.Find()
	if skip > 0 {
		opts.SetSkip(int64(skip))
	}
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return opts
}

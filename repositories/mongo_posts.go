package repositories

import (
	"context"
	"time"

	"socialfeed/database"
	"socialfeed/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var newestFirst = bson.D{{Key: "createdAt", Value: -1}}

type MongoPostRepository struct {
	collection *mongo.Collection
}

func NewMongoPostRepository(db *mongo.Database) *MongoPostRepository {
	return &MongoPostRepository{collection: db.Collection(database.PostsCollection)}
}

func (r *MongoPostRepository) Create(ctx context.Context, p *models.Post) error {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	if err := p.Prepare(time.Now()); err != nil {
		return err
	}
	_, err := r.collection.InsertOne(ctx, p)
	return err
}

func (r *MongoPostRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	var p models.Post
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (r *MongoPostRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Post, error) {
	if len(ids) == 0 {
		return []models.Post{}, nil
	}
	return r.find(ctx, idFilter(ids), options.Find())
}

func (r *MongoPostRepository) FindByIDsPage(ctx context.Context, ids []primitive.ObjectID, skip, limit int) ([]models.Post, error) {
	if len(ids) == 0 {
		return []models.Post{}, nil
	}
	return r.find(ctx, idFilter(ids), pageOptions(skip, limit).SetSort(newestFirst))
}

func (r *MongoPostRepository) Timeline(ctx context.Context, authors []primitive.ObjectID, skip, limit int) ([]models.Post, error) {
	filter := bson.M{
		"author":     bson.M{"$in": authors},
		"visibility": bson.M{"$in": bson.A{models.VisibilityPublic, models.VisibilityFollowers}},
	}
	return r.find(ctx, filter, pageOptions(skip, limit).SetSort(newestFirst))
}

func (r *MongoPostRepository) ByAuthor(ctx context.Context, author primitive.ObjectID, limit int) ([]models.Post, error) {
	return r.find(ctx, bson.M{"author": author}, pageOptions(0, limit).SetSort(newestFirst))
}

func (r *MongoPostRepository) Discover(ctx context.Context, q DiscoverQuery) ([]models.Post, error) {
	filter := bson.M{
		"visibility": models.VisibilityPublic,
		"author":     bson.M{"$ne": q.ExcludeAuthor},
	}
	if len(q.ExcludeIDs) > 0 {
		filter["_id"] = bson.M{"$nin": q.ExcludeIDs}
	}
	created := bson.M{}
	if !q.Since.IsZero() {
		created["$gte"] = q.Since
	}
	if !q.Before.IsZero() {
		created["$lt"] = q.Before
	}
	if len(created) > 0 {
		filter["createdAt"] = created
	}
	if len(q.Categories) > 0 {
		filter["category"] = bson.M{"$in": q.Categories}
	}

	opts := pageOptions(0, q.Limit).SetSort(bson.D{
		{Key: "likeCount", Value: -1},
		{Key: "createdAt", Value: -1},
	})
	return r.find(ctx, filter, opts)
}

func (r *MongoPostRepository) ToggleLike(ctx context.Context, postID, userID primitive.ObjectID) (*models.Post, bool, error) {
	var p models.Post
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": postID}, toggleLikePipeline(userID), returnAfter()).Decode(&p)
	if err != nil {
		return nil, false, notFound(err)
	}
	for _, id := range p.Likes {
		if id == userID {
			return &p, true, nil
		}
	}
	return &p, false, nil
}

func (r *MongoPostRepository) IncCommentCount(ctx context.Context, postID primitive.ObjectID, delta int) error {
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": postID}, bson.M{
		"$inc": bson.M{"commentCount": delta},
		"$set": bson.M{"updatedAt": time.Now()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoPostRepository) find(ctx context.Context, filter interface{}, opts *options.FindOptions) ([]models.Post, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	posts := []models.Post{}
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

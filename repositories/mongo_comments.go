package repositories

import (
	"context"
	"time"

	"socialfeed/database"
	"socialfeed/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type MongoCommentRepository struct {
	collection *mongo.Collection
}

func NewMongoCommentRepository(db *mongo.Database) *MongoCommentRepository {
	return &MongoCommentRepository{collection: db.Collection(database.CommentsCollection)}
}

func (r *MongoCommentRepository) Create(ctx context.Context, c *models.Comment) error {
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	if err := c.Prepare(time.Now()); err != nil {
		return err
	}
	_, err := r.collection.InsertOne(ctx, c)
	return err
}

func (r *MongoCommentRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Comment, error) {
	var c models.Comment
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (r *MongoCommentRepository) TopLevel(ctx context.Context, postID primitive.ObjectID, skip, limit int) ([]models.Comment, error) {
	filter := bson.M{
		"post":          postID,
		"parentComment": bson.M{"$exists": false},
	}
	cursor, err := r.collection.Find(ctx, filter, pageOptions(skip, limit).SetSort(newestFirst))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	comments := []models.Comment{}
	if err := cursor.All(ctx, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

func (r *MongoCommentRepository) ToggleLike(ctx context.Context, commentID, userID primitive.ObjectID) (*models.Comment, bool, error) {
	var c models.Comment
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": commentID}, toggleLikePipeline(userID), returnAfter()).Decode(&c)
	if err != nil {
		return nil, false, notFound(err)
	}
	for _, id := range c.Likes {
		if id == userID {
			return &c, true, nil
		}
	}
	return &c, false, nil
}

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

type MongoCategoryRepository struct {
	collection *mongo.Collection
}

func NewMongoCategoryRepository(db *mongo.Database) *MongoCategoryRepository {
	return &MongoCategoryRepository{collection: db.Collection(database.CategoriesCollection)}
}

func (r *MongoCategoryRepository) List(ctx context.Context) ([]models.Category, error) {
	return r.find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
}

func (r *MongoCategoryRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Category, error) {
	if len(ids) == 0 {
		return []models.Category{}, nil
	}
	return r.find(ctx, idFilter(ids), options.Find())
}

func (r *MongoCategoryRepository) InsertMany(ctx context.Context, cs []models.Category) error {
	if len(cs) == 0 {
		return nil
	}
	now := time.Now()
	docs := make([]interface{}, len(cs))
	for i := range cs {
		if cs[i].ID.IsZero() {
			cs[i].ID = primitive.NewObjectID()
		}
		cs[i].CreatedAt, cs[i].UpdatedAt = now, now
		docs[i] = cs[i]
	}
	_, err := r.collection.InsertMany(ctx, docs)
	return duplicate(err)
}

func (r *MongoCategoryRepository) find(ctx context.Context, filter interface{}, opts *options.FindOptions) ([]models.Category, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	categories := []models.Category{}
	if err := cursor.All(ctx, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

type MongoHistoryRepository struct {
	collection *mongo.Collection
}

func NewMongoHistoryRepository(db *mongo.Database) *MongoHistoryRepository {
	return &MongoHistoryRepository{collection: db.Collection(database.HistoryCollection)}
}

func (r *MongoHistoryRepository) Get(ctx context.Context, userID primitive.ObjectID) (*models.UserPostHistory, error) {
	var h models.UserPostHistory
	if err := r.collection.FindOne(ctx, bson.M{"user": userID}).Decode(&h); err != nil {
		return nil, notFound(err)
	}
	return &h, nil
}

func (r *MongoHistoryRepository) AddSeen(ctx context.Context, userID primitive.ObjectID, ids []primitive.ObjectID, limit int) (*models.UserPostHistory, error) {
	if limit <= 0 {
		limit = models.MaxSeenPosts
	}
	var h models.UserPostHistory
	opts := returnAfter().SetUpsert(true)
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"user": userID}, seenPostsPipeline(models.DedupeIDs(ids), limit), opts).Decode(&h)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (r *MongoHistoryRepository) Clear(ctx context.Context, userID primitive.ObjectID) error {
	now := time.Now()
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"user": userID},
		bson.M{
			"$set":         bson.M{"seenPosts": bson.A{}, "lastUpdated": now, "updatedAt": now},
			"$setOnInsert": bson.M{"createdAt": now},
		},
		options.Update().SetUpsert(true),
	)
	return err
}

type MongoPushRepository struct {
	collection *mongo.Collection
}

func NewMongoPushRepository(db *mongo.Database) *MongoPushRepository {
	return &MongoPushRepository{collection: db.Collection(database.PushCollection)}
}

func (r *MongoPushRepository) Save(ctx context.Context, s *models.PushSubscription) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"endpoint": s.Endpoint},
		bson.M{
			"$set":         bson.M{"user": s.User, "keys": s.Keys},
			"$setOnInsert": bson.M{"createdAt": time.Now()},
		},
		options.Update().SetUpsert(true),
	)
	return err
}

func (r *MongoPushRepository) ByUser(ctx context.Context, userID primitive.ObjectID) ([]models.PushSubscription, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"user": userID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	subs := []models.PushSubscription{}
	if err := cursor.All(ctx, &subs); err != nil {
		return nil, err
	}
	return subs, nil
}

func (r *MongoPushRepository) DeleteByEndpoint(ctx context.Context, endpoint string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"endpoint": endpoint})
	return err
}

// NewMongoStore wires every repository against db.
func NewMongoStore(db *mongo.Database) *Store {
	return &Store{
		Users:      NewMongoUserRepository(db),
		Posts:      NewMongoPostRepository(db),
		Comments:   NewMongoCommentRepository(db),
		Categories: NewMongoCategoryRepository(db),
		History:    NewMongoHistoryRepository(db),
		Push:       NewMongoPushRepository(db),
	}
}

package repositories

import (
	"context"
	"regexp"
	"strings"
	"time"

	"socialfeed/database"
	"socialfeed/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoUserRepository struct {
	collection *mongo.Collection
}

func NewMongoUserRepository(db *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{collection: db.Collection(database.UsersCollection)}
}

func (r *MongoUserRepository) Create(ctx context.Context, u *models.User) error {
	now := time.Now()
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	u.Username = strings.ToLower(strings.TrimSpace(u.Username))
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.Interests == nil {
		u.Interests = []primitive.ObjectID{}
	}
	if u.Followers == nil {
		u.Followers = []primitive.ObjectID{}
	}
	if u.Following == nil {
		u.Following = []primitive.ObjectID{}
	}
	u.SyncCounts()
	u.CreatedAt, u.UpdatedAt = now, now

	_, err := r.collection.InsertOne(ctx, u)
	return duplicate(err)
}

func (r *MongoUserRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (r *MongoUserRepository) FindByLogin(ctx context.Context, login string) (*models.User, error) {
	login = strings.ToLower(strings.TrimSpace(login))
	filter := bson.M{"$or": bson.A{
		bson.M{"username": login},
		bson.M{"email": login},
	}}

	var u models.User
	if err := r.collection.FindOne(ctx, filter).Decode(&u); err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (r *MongoUserRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	return r.find(ctx, idFilter(ids), options.Find())
}

func (r *MongoUserRepository) List(ctx context.Context, search string, limit int) ([]models.User, error) {
	filter := bson.M{}
	if search = strings.TrimSpace(search); search != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(search), Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"username": re},
			bson.M{"fullName": re},
		}
	}
	opts := pageOptions(0, limit).SetSort(bson.D{{Key: "followerCount", Value: -1}})
	return r.find(ctx, filter, opts)
}

func (r *MongoUserRepository) Suggest(ctx context.Context, u *models.User, limit int) ([]models.User, error) {
	following := u.Following
	if following == nil {
		following = []primitive.ObjectID{}
	}
	interests := u.Interests
	if interests == nil {
		interests = []primitive.ObjectID{}
	}
	filter := bson.M{
		"_id":       bson.M{"$ne": u.ID, "$nin": following},
		"interests": bson.M{"$in": interests},
	}
	opts := pageOptions(0, limit).SetSort(bson.D{{Key: "followerCount", Value: -1}})
	return r.find(ctx, filter, opts)
}

func (r *MongoUserRepository) SetFollow(ctx context.Context, followerID, targetID primitive.ObjectID, follow bool) (*models.User, *models.User, error) {
	var follower, target models.User

	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": followerID}, followPipeline("following", targetID, follow), returnAfter()).Decode(&follower)
	if err != nil {
		return nil, nil, notFound(err)
	}
	err = r.collection.FindOneAndUpdate(ctx, bson.M{"_id": targetID}, followPipeline("followers", followerID, follow), returnAfter()).Decode(&target)
	if err != nil {
		return nil, nil, notFound(err)
	}
	return &follower, &target, nil
}

func (r *MongoUserRepository) Count(ctx context.Context) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{})
}

func (r *MongoUserRepository) find(ctx context.Context, filter interface{}, opts *options.FindOptions) ([]models.User, error) {
	cursor, err := r.collection.Find(ctx, filter, opts.SetProjection(bson.M{"password": 0}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	users := []models.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

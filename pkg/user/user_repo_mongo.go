package user

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	usersCollection    = "users"
	countersCollection = "counters"
)

type userDocument struct {
	Id          int    `bson:"_id"`
	Uid         string `bson:"uid"`
	Username    string `bson:"username"`
	DisplayName string `bson:"display_name"`
	Timezone    string `bson:"timezone"`
}

// MongoRepo keeps users in a document store. Numeric ids come from a counter
// document so that events reference owners the same way in both stores.
type MongoRepo struct {
	users    *mongo.Collection
	counters *mongo.Collection
}

func NewMongoRepo(db *mongo.Database) *MongoRepo {
	return &MongoRepo{
		users:    db.Collection(usersCollection),
		counters: db.Collection(countersCollection),
	}
}

// EnsureIndexes creates the unique uid index used by identity lookups.
func (m *MongoRepo) EnsureIndexes(ctx context.Context) error {
	_, err := m.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "uid", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create users index: %w", err)
	}
	return nil
}

func (m *MongoRepo) nextId(ctx context.Context) (int, error) {
	var counter struct {
		Seq int `bson:"seq"`
	}
	err := m.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": usersCollection},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate user id: %w", err)
	}
	return counter.Seq, nil
}

func (m *MongoRepo) CreateUser(ctx context.Context, user User) (int, error) {
	id, err := m.nextId(ctx)
	if err != nil {
		log.Error(err)
		return 0, err
	}
	_, err = m.users.InsertOne(ctx, userDocument{
		Id:          id,
		Uid:         user.Uid,
		Username:    user.Username,
		DisplayName: user.DisplayName,
		Timezone:    user.Settings.Timezone,
	})
	if mongo.IsDuplicateKeyError(err) {
		log.Debugf("user %s already exists", user.Uid)
		return 0, ErrUserExists
	} else if err != nil {
		log.Errorf("failed to create user: %v", err)
		return 0, err
	}
	return id, nil
}

func (m *MongoRepo) GetUser(ctx context.Context, id int) (User, error) {
	return m.findOne(ctx, bson.M{"_id": id})
}

func (m *MongoRepo) GetUserByUid(ctx context.Context, uid string) (User, error) {
	return m.findOne(ctx, bson.M{"uid": uid})
}

func (m *MongoRepo) findOne(ctx context.Context, filter bson.M) (User, error) {
	var doc userDocument
	err := m.users.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return User{}, ErrUserNotFound
	} else if err != nil {
		log.Errorf("failed to get user: %v", err)
		return User{}, err
	}
	return User{
		Id:          doc.Id,
		Uid:         doc.Uid,
		Username:    doc.Username,
		DisplayName: doc.DisplayName,
		Settings:    Settings{Timezone: doc.Timezone},
	}, nil
}

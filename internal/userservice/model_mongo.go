package userservice

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sushihentaime/bloglist/internal/common"
)

const usersCollection = "users"

type userDocument struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty"`
	Username     string               `bson:"username"`
	Name         string               `bson:"name"`
	PasswordHash []byte               `bson:"passwordHash"`
	Blogs        []primitive.ObjectID `bson:"blogs"`
}

func (d *userDocument) toUser() User {
	u := User{
		ID:       d.ID.Hex(),
		Username: d.Username,
		Name:     d.Name,
		Password: Password{hash: d.PasswordHash},
		Blogs:    make([]string, 0, len(d.Blogs)),
	}

	for _, id := range d.Blogs {
		u.Blogs = append(u.Blogs, id.Hex())
	}

	return u
}

// MongoUserStore keeps users as documents in the "users" collection.
type MongoUserStore struct {
	coll *mongo.Collection
}

func NewMongoUserStore(db *mongo.Database) *MongoUserStore {
	return &MongoUserStore{coll: db.Collection(usersCollection)}
}

// EnsureIndexes creates the unique username index.
func (m *MongoUserStore) EnsureIndexes(ctx context.Context) error {
	_, err := m.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("users_username_key"),
	})
	if err != nil {
		return fmt.Errorf("error creating username index: %w", err)
	}

	return nil
}

func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, common.ErrInvalidID
	}

	return oid, nil
}

func (m *MongoUserStore) FindAll(ctx context.Context) ([]User, error) {
	cursor, err := m.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("error finding users: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []userDocument
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("error decoding users: %w", err)
	}

	users := make([]User, 0, len(docs))
	for i := range docs {
		users = append(users, docs[i].toUser())
	}

	return users, nil
}

func (m *MongoUserStore) findOne(ctx context.Context, filter bson.M) (*User, error) {
	var doc userDocument
	err := m.coll.FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			return nil, ErrNotFound
		default:
			return nil, fmt.Errorf("error finding user: %w", err)
		}
	}

	u := doc.toUser()
	return &u, nil
}

func (m *MongoUserStore) FindByID(ctx context.Context, id string) (*User, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	return m.findOne(ctx, bson.M{"_id": oid})
}

func (m *MongoUserStore) FindByUsername(ctx context.Context, username string) (*User, error) {
	return m.findOne(ctx, bson.M{"username": username})
}

func (m *MongoUserStore) Insert(ctx context.Context, u *User) error {
	doc := userDocument{
		Username:     u.Username,
		Name:         u.Name,
		PasswordHash: u.Password.hash,
		Blogs:        []primitive.ObjectID{},
	}

	res, err := m.coll.InsertOne(ctx, doc)
	if err != nil {
		switch {
		case mongo.IsDuplicateKeyError(err):
			return ErrDuplicateUsername
		default:
			return fmt.Errorf("error inserting user: %w", err)
		}
	}

	u.ID = res.InsertedID.(primitive.ObjectID).Hex()

	return nil
}

func (m *MongoUserStore) AddBlog(ctx context.Context, userID, blogID string) error {
	uid, err := objectID(userID)
	if err != nil {
		return err
	}

	bid, err := objectID(blogID)
	if err != nil {
		return err
	}

	res, err := m.coll.UpdateByID(ctx, uid, bson.M{"$push": bson.M{"blogs": bid}})
	if err != nil {
		return fmt.Errorf("error adding blog to user: %w", err)
	}

	if res.MatchedCount == 0 {
		return ErrNotFound
	}

	return nil
}

func (m *MongoUserStore) RemoveBlog(ctx context.Context, blogID string) error {
	bid, err := objectID(blogID)
	if err != nil {
		return err
	}

	_, err = m.coll.UpdateMany(ctx, bson.M{"blogs": bid}, bson.M{"$pull": bson.M{"blogs": bid}})
	if err != nil {
		return fmt.Errorf("error removing blog from users: %w", err)
	}

	return nil
}

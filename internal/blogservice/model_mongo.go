package blogservice

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

const blogsCollection = "blogs"

type blogDocument struct {
	ID     primitive.ObjectID  `bson:"_id,omitempty"`
	Title  string              `bson:"title"`
	Author string              `bson:"author"`
	URL    string              `bson:"url"`
	Likes  int                 `bson:"likes"`
	User   *primitive.ObjectID `bson:"user,omitempty"`
}

func (d *blogDocument) toBlog() Blog {
	b := Blog{
		ID:     d.ID.Hex(),
		Title:  d.Title,
		Author: d.Author,
		URL:    d.URL,
		Likes:  d.Likes,
	}

	if d.User != nil {
		b.UserID = d.User.Hex()
	}

	return b
}

func newBlogDocument(b *Blog) (*blogDocument, error) {
	doc := &blogDocument{
		Title:  b.Title,
		Author: b.Author,
		URL:    b.URL,
		Likes:  b.Likes,
	}

	if b.UserID != "" {
		uid, err := objectID(b.UserID)
		if err != nil {
			return nil, err
		}
		doc.User = &uid
	}

	return doc, nil
}

func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, common.ErrInvalidID
	}

	return oid, nil
}

// MongoBlogStore keeps blogs as documents in the "blogs" collection.
type MongoBlogStore struct {
	coll *mongo.Collection
}

func NewMongoBlogStore(db *mongo.Database) *MongoBlogStore {
	return &MongoBlogStore{coll: db.Collection(blogsCollection)}
}

func (m *MongoBlogStore) FindAll(ctx context.Context) ([]Blog, error) {
	cursor, err := m.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("error finding blogs: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []blogDocument
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("error decoding blogs: %w", err)
	}

	blogs := make([]Blog, 0, len(docs))
	for i := range docs {
		blogs = append(blogs, docs[i].toBlog())
	}

	return blogs, nil
}

func (m *MongoBlogStore) FindByID(ctx context.Context, id string) (*Blog, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	var doc blogDocument
	err = m.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if err != nil {
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			return nil, common.ErrRecordNotFound
		default:
			return nil, fmt.Errorf("error finding blog: %w", err)
		}
	}

	b := doc.toBlog()
	return &b, nil
}

func (m *MongoBlogStore) Insert(ctx context.Context, b *Blog) error {
	doc, err := newBlogDocument(b)
	if err != nil {
		return err
	}

	res, err := m.coll.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("error inserting blog: %w", err)
	}

	b.ID = res.InsertedID.(primitive.ObjectID).Hex()

	return nil
}

func (m *MongoBlogStore) InsertMany(ctx context.Context, blogs []Blog) ([]Blog, error) {
	docs := make([]interface{}, 0, len(blogs))
	for i := range blogs {
		doc, err := newBlogDocument(&blogs[i])
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	res, err := m.coll.InsertMany(ctx, docs)
	if err != nil {
		return nil, fmt.Errorf("error inserting blogs: %w", err)
	}

	inserted := make([]Blog, len(blogs))
	copy(inserted, blogs)
	for i, id := range res.InsertedIDs {
		inserted[i].ID = id.(primitive.ObjectID).Hex()
	}

	return inserted, nil
}

// UpdateByID replaces the editable fields and refreshes b with the stored document.
func (m *MongoBlogStore) UpdateByID(ctx context.Context, b *Blog) error {
	oid, err := objectID(b.ID)
	if err != nil {
		return err
	}

	update := bson.M{"$set": bson.M{
		"title":  b.Title,
		"author": b.Author,
		"url":    b.URL,
		"likes":  b.Likes,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc blogDocument
	err = m.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&doc)
	if err != nil {
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			return common.ErrRecordNotFound
		default:
			return fmt.Errorf("error updating blog: %w", err)
		}
	}

	*b = doc.toBlog()

	return nil
}

func (m *MongoBlogStore) DeleteByID(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}

	_, err = m.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("error deleting blog: %w", err)
	}

	return nil
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"imageshelf/internal/models"
)

type mongoDocument struct {
	ImageID     string    `bson:"image_id"`
	UserID      string    `bson:"user_id"`
	Title       string    `bson:"title"`
	Description string    `bson:"description"`
	Tags        []string  `bson:"tags"`
	ContentType string    `bson:"content_type"`
	CreatedAt   time.Time `bson:"created_at"`
	BlobKey     string    `bson:"blob_key"`
}

// MongoRepository keeps one document per image in a MongoDB collection.
type MongoRepository struct {
	coll      *mongo.Collection
	userIndex string
}

func NewMongoRepository(db *mongo.Database, collection, userIndex string) *MongoRepository {
	return &MongoRepository{
		coll:      db.Collection(collection),
		userIndex: userIndex,
	}
}

func (r *MongoRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "image_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("image_id_unique"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetName(r.userIndex),
		},
	})
	if err != nil {
		return fmt.Errorf("create indexes: %w", err)
	}
	return nil
}

func (r *MongoRepository) Ping(ctx context.Context) error {
	return r.coll.Database().Client().Ping(ctx, nil)
}

func (r *MongoRepository) Put(ctx context.Context, record models.ImageRecord) error {
	doc := mongoDocument{
		ImageID:     record.ImageID,
		UserID:      record.UserID,
		Title:       record.Title,
		Description: record.Description,
		Tags:        record.Tags,
		ContentType: record.ContentType,
		CreatedAt:   record.CreatedAt.UTC(),
		BlobKey:     record.BlobKey,
	}
	if doc.Tags == nil {
		doc.Tags = []string{}
	}

	_, err := r.coll.ReplaceOne(ctx, bson.M{"image_id": record.ImageID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert image document: %w", err)
	}
	return nil
}

func (r *MongoRepository) Get(ctx context.Context, imageID string) (models.ImageRecord, error) {
	var doc mongoDocument
	if err := r.coll.FindOne(ctx, bson.M{"image_id": imageID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.ImageRecord{}, ErrImageNotFound
		}
		return models.ImageRecord{}, fmt.Errorf("find image document: %w", err)
	}
	return doc.record(), nil
}

func (r *MongoRepository) Delete(ctx context.Context, imageID string) error {
	if _, err := r.coll.DeleteOne(ctx, bson.M{"image_id": imageID}); err != nil {
		return fmt.Errorf("delete image document: %w", err)
	}
	return nil
}

func (r *MongoRepository) Query(ctx context.Context, userID string) ([]models.ImageRecord, error) {
	filter := bson.M{}
	if userID != "" {
		filter["user_id"] = userID
	}

	cursor, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find image documents: %w", err)
	}

	var docs []mongoDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode image documents: %w", err)
	}

	records := make([]models.ImageRecord, 0, len(docs))
	for _, doc := range docs {
		records = append(records, doc.record())
	}
	return records, nil
}

func (d mongoDocument) record() models.ImageRecord {
	tags := d.Tags
	if tags == nil {
		tags = []string{}
	}
	return models.ImageRecord{
		ImageID:     d.ImageID,
		UserID:      d.UserID,
		Title:       d.Title,
		Description: d.Description,
		Tags:        tags,
		ContentType: d.ContentType,
		CreatedAt:   d.CreatedAt.UTC(),
		BlobKey:     d.BlobKey,
	}
}

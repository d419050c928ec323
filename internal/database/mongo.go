package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"aidmap/entity"
	"aidmap/internal/config"
)

const (
	collectionUsers         = "users"
	collectionNeedPosts     = "need_posts"
	collectionHelpOffers    = "help_offers"
	collectionCategories    = "categories"
	collectionSubCategories = "sub_categories"
	collectionTags          = "tags"
	collectionFeedback      = "feedback"
)

type MongoDB struct {
	ctx           context.Context
	clientOptions *options.ClientOptions
	database      string
}

func NewMongoClient(conf *config.Config) *MongoDB {
	if !conf.Mongo.Enabled {
		return nil
	}
	connectionUri := fmt.Sprintf("mongodb://%s:%s", conf.Mongo.Host, conf.Mongo.Port)
	clientOptions := options.Client().ApplyURI(connectionUri)
	if conf.Mongo.User != "" {
		clientOptions.SetAuth(options.Credential{
			Username:   conf.Mongo.User,
			Password:   conf.Mongo.Password,
			AuthSource: conf.Mongo.Database,
		})
	}
	client := &MongoDB{
		ctx:           context.Background(),
		clientOptions: clientOptions,
		database:      conf.Mongo.Database,
	}
	return client
}

func (m *MongoDB) connect() (*mongo.Client, error) {
	connection, err := mongo.Connect(m.ctx, m.clientOptions)
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}
	return connection, nil
}

func (m *MongoDB) disconnect(connection *mongo.Client) {
	_ = connection.Disconnect(m.ctx)
}

func (m *MongoDB) findError(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil
	}
	return fmt.Errorf("mongodb find: %w", err)
}

// EnsureIndexes creates the uniqueness constraints the services rely on:
// one account per email, one owner per referral code.
func (m *MongoDB) EnsureIndexes() error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	users := connection.Database(m.database).Collection(collectionUsers)
	_, err = users.Indexes().CreateMany(m.ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "referral_code", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
		{
			Keys:    bson.D{{Key: "token", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	})
	if err != nil {
		return fmt.Errorf("users indexes: %w", err)
	}

	posts := connection.Database(m.database).Collection(collectionNeedPosts)
	_, err = posts.Indexes().CreateOne(m.ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "expires_at", Value: 1}, {Key: "is_expired", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("need posts index: %w", err)
	}

	offers := connection.Database(m.database).Collection(collectionHelpOffers)
	_, err = offers.Indexes().CreateOne(m.ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "need_post_id", Value: 1}, {Key: "user_id", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("help offers index: %w", err)
	}
	return nil
}

// EnsureReferenceData seeds categories, sub-categories and tags when the
// collections are empty. New listings land in the "others" category.
func (m *MongoDB) EnsureReferenceData() error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	db := connection.Database(m.database)

	categories := db.Collection(collectionCategories)
	count, err := categories.CountDocuments(m.ctx, bson.D{})
	if err != nil {
		return fmt.Errorf("count categories: %w", err)
	}
	if count > 0 {
		return nil
	}

	var othersId string
	for _, c := range defaultCategories() {
		if c.Slug == entity.DefaultCategorySlug {
			othersId = c.Id
		}
		if _, err = categories.InsertOne(m.ctx, c); err != nil {
			return fmt.Errorf("seed category %s: %w", c.Slug, err)
		}
	}

	subCategories := db.Collection(collectionSubCategories)
	for _, s := range defaultSubCategories(othersId) {
		if _, err = subCategories.InsertOne(m.ctx, s); err != nil {
			return fmt.Errorf("seed sub-category %s: %w", s.Slug, err)
		}
	}

	tags := db.Collection(collectionTags)
	for _, t := range defaultTags() {
		if _, err = tags.InsertOne(m.ctx, t); err != nil {
			return fmt.Errorf("seed tag %s: %w", t.Value, err)
		}
	}
	return nil
}

func (m *MongoDB) GetCategoryBySlug(slug string) (*entity.Category, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionCategories)
	filter := bson.D{{Key: "slug", Value: slug}}
	var category entity.Category
	err = collection.FindOne(m.ctx, filter).Decode(&category)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, m.findError(err)
	}
	return &category, nil
}

func defaultCategories() []entity.Category {
	return []entity.Category{
		{Id: uuid.New().String(), Name: "Basic Needs", Slug: "basic-needs", Description: "Food, water, shelter, clothing", Icon: "home"},
		{Id: uuid.New().String(), Name: "Health", Slug: "health", Description: "Medicine, health services, psychological support", Icon: "heart"},
		{Id: uuid.New().String(), Name: "Transportation", Slug: "transportation", Description: "Transport services, ride sharing", Icon: "car"},
		{Id: uuid.New().String(), Name: "Accommodation", Slug: "accommodation", Description: "Temporary shelter, lodging", Icon: "home"},
		{Id: uuid.New().String(), Name: "Education", Slug: "education", Description: "Learning materials, tutoring, courses", Icon: "book"},
		{Id: uuid.New().String(), Name: "Technical Support", Slug: "technical-support", Description: "IT support, electrical, mechanical, repairs", Icon: "tool"},
		{Id: uuid.New().String(), Name: "Legal Support", Slug: "legal-support", Description: "Legal aid, documentation", Icon: "briefcase"},
		{Id: uuid.New().String(), Name: "Others", Slug: "others", Description: "Other kinds of help", Icon: "more-horizontal"},
	}
}

func defaultSubCategories(othersId string) []entity.SubCategory {
	return []entity.SubCategory{
		{Id: uuid.New().String(), Name: "Other Services", Slug: "other-services", CategoryId: othersId},
		{Id: uuid.New().String(), Name: "Other Materials", Slug: "other-materials", CategoryId: othersId},
	}
}

func defaultTags() []entity.Tag {
	return []entity.Tag{
		{Id: uuid.New().String(), Name: "Urgent", Value: "urgent"},
		{Id: uuid.New().String(), Name: "For Children", Value: "for-children"},
		{Id: uuid.New().String(), Name: "For Elderly", Value: "for-elderly"},
		{Id: uuid.New().String(), Name: "For Disabled", Value: "for-disabled"},
		{Id: uuid.New().String(), Name: "Disaster Area", Value: "disaster-area"},
		{Id: uuid.New().String(), Name: "Long Term", Value: "long-term"},
		{Id: uuid.New().String(), Name: "One Time", Value: "one-time"},
		{Id: uuid.New().String(), Name: "Regular", Value: "regular"},
	}
}

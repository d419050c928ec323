package database

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"aidmap/entity"
)

func (m *MongoDB) CreateNeedPost(post *entity.NeedPost) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionNeedPosts)
	_, err = collection.InsertOne(m.ctx, post)
	return err
}

// GetNeedPost returns (nil, nil) when the listing does not exist.
func (m *MongoDB) GetNeedPost(id string) (*entity.NeedPost, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionNeedPosts)
	var post entity.NeedPost
	err = collection.FindOne(m.ctx, bson.D{{Key: "_id", Value: id}}).Decode(&post)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, m.findError(err)
	}
	return &post, nil
}

// ListActiveNeeds returns non-expired listings still open for help,
// newest first. The expiry filter is on is_expired, not expires_at: a stale
// listing stays visible until the sweep marks it.
func (m *MongoDB) ListActiveNeeds() ([]*entity.NeedPost, error) {
	filter := bson.D{
		{Key: "status", Value: bson.D{{Key: "$in", Value: bson.A{entity.NeedPending, entity.NeedInProgress}}}},
		{Key: "is_expired", Value: false},
	}
	return m.findNeedPosts(filter)
}

func (m *MongoDB) ListUserNeeds(userId string) ([]*entity.NeedPost, error) {
	return m.findNeedPosts(bson.D{{Key: "user_id", Value: userId}})
}

func (m *MongoDB) findNeedPosts(filter bson.D) ([]*entity.NeedPost, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionNeedPosts)
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := collection.Find(m.ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(m.ctx)

	var posts []*entity.NeedPost
	err = cursor.All(m.ctx, &posts)
	if err != nil {
		return nil, err
	}
	return posts, nil
}

// UpdateNeedStatus sets a new status on a listing owned by userId and
// returns the updated document, or (nil, nil) when the listing is missing
// or owned by someone else. It never touches is_expired.
func (m *MongoDB) UpdateNeedStatus(id, userId string, status entity.NeedStatus) (*entity.NeedPost, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionNeedPosts)
	filter := bson.D{{Key: "_id", Value: id}, {Key: "user_id", Value: userId}}
	update := bson.D{{Key: "$set", Value: bson.D{{Key: "status", Value: status}}}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var post entity.NeedPost
	err = collection.FindOneAndUpdate(m.ctx, filter, update, opts).Decode(&post)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, m.findError(err)
	}
	return &post, nil
}

// SweepExpiredNeeds flips is_expired on every listing past its deadline.
// The is_expired=false predicate makes overlapping sweeps converge: a row
// already marked is never matched again, so repeat calls return 0.
func (m *MongoDB) SweepExpiredNeeds(now time.Time) (int64, error) {
	connection, err := m.connect()
	if err != nil {
		return 0, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionNeedPosts)
	filter := bson.D{
		{Key: "expires_at", Value: bson.D{{Key: "$lt", Value: now}}},
		{Key: "is_expired", Value: false},
	}
	update := bson.D{{Key: "$set", Value: bson.D{{Key: "is_expired", Value: true}}}}
	result, err := collection.UpdateMany(m.ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return result.ModifiedCount, nil
}

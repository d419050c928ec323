package database

import (
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"aidmap/entity"
)

func (m *MongoDB) CreateHelpOffer(offer *entity.HelpOffer) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionHelpOffers)
	_, err = collection.InsertOne(m.ctx, offer)
	return err
}

// FindHelpOffer returns the caller's offer on a listing, (nil, nil) if none.
func (m *MongoDB) FindHelpOffer(needPostId, userId string) (*entity.HelpOffer, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionHelpOffers)
	filter := bson.D{{Key: "need_post_id", Value: needPostId}, {Key: "user_id", Value: userId}}
	var offer entity.HelpOffer
	err = collection.FindOne(m.ctx, filter).Decode(&offer)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, m.findError(err)
	}
	return &offer, nil
}

func (m *MongoDB) ListUserOffers(userId string) ([]*entity.HelpOffer, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionHelpOffers)
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := collection.Find(m.ctx, bson.D{{Key: "user_id", Value: userId}}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(m.ctx)

	var offers []*entity.HelpOffer
	err = cursor.All(m.ctx, &offers)
	if err != nil {
		return nil, err
	}
	return offers, nil
}

func (m *MongoDB) CountOffersForNeed(needPostId string) (int, error) {
	connection, err := m.connect()
	if err != nil {
		return 0, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionHelpOffers)
	count, err := collection.CountDocuments(m.ctx, bson.D{{Key: "need_post_id", Value: needPostId}})
	return int(count), err
}

// CompleteOffersForNeed bulk-moves a listing's open offers to COMPLETED,
// the cascade that fires when the listing itself completes.
func (m *MongoDB) CompleteOffersForNeed(needPostId string) (int64, error) {
	connection, err := m.connect()
	if err != nil {
		return 0, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionHelpOffers)
	filter := bson.D{
		{Key: "need_post_id", Value: needPostId},
		{Key: "status", Value: bson.D{{Key: "$in", Value: bson.A{entity.NeedPending, entity.NeedInProgress}}}},
	}
	update := bson.D{{Key: "$set", Value: bson.D{{Key: "status", Value: entity.NeedCompleted}}}}
	result, err := collection.UpdateMany(m.ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return result.ModifiedCount, nil
}

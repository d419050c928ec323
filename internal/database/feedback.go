package database

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"aidmap/entity"
)

func (m *MongoDB) CreateFeedback(feedback *entity.Feedback) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionFeedback)
	_, err = collection.InsertOne(m.ctx, feedback)
	return err
}

func (m *MongoDB) ListUserFeedback(userId string) ([]*entity.Feedback, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionFeedback)
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := collection.Find(m.ctx, bson.D{{Key: "user_id", Value: userId}}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(m.ctx)

	var items []*entity.Feedback
	err = cursor.All(m.ctx, &items)
	if err != nil {
		return nil, err
	}
	return items, nil
}

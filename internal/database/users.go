package database

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"aidmap/entity"
)

func (m *MongoDB) GetUserByToken(token string) (*entity.User, error) {
	return m.findUser(bson.D{{Key: "token", Value: token}})
}

func (m *MongoDB) GetUserByEmail(email string) (*entity.User, error) {
	return m.findUser(bson.D{{Key: "email", Value: email}})
}

func (m *MongoDB) GetUserById(id string) (*entity.User, error) {
	return m.findUser(bson.D{{Key: "_id", Value: id}})
}

func (m *MongoDB) GetUserByReferralCode(code string) (*entity.User, error) {
	return m.findUser(bson.D{{Key: "referral_code", Value: code}})
}

// findUser returns (nil, nil) when no user matches the filter.
func (m *MongoDB) findUser(filter bson.D) (*entity.User, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionUsers)
	var user entity.User
	err = collection.FindOne(m.ctx, filter).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, m.findError(err)
	}
	return &user, nil
}

func (m *MongoDB) CreateUser(user *entity.User) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionUsers)
	_, err = collection.InsertOne(m.ctx, user)
	return err
}

// CountReferred counts accounts created through the given user's code.
func (m *MongoDB) CountReferred(userId string) (int, error) {
	connection, err := m.connect()
	if err != nil {
		return 0, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionUsers)
	count, err := collection.CountDocuments(m.ctx, bson.D{{Key: "referred_by_id", Value: userId}})
	return int(count), err
}

// SetReferralCode assigns a code and invitation limit to a user that has
// none yet. Returns false without writing when a code is already present,
// which makes lazy generation idempotent. A duplicate-key error means the
// random code collided with an existing one and the caller should retry.
func (m *MongoDB) SetReferralCode(userId, code string, limit int) (bool, error) {
	connection, err := m.connect()
	if err != nil {
		return false, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionUsers)
	filter := bson.D{
		{Key: "_id", Value: userId},
		{Key: "$or", Value: bson.A{
			bson.D{{Key: "referral_code", Value: ""}},
			bson.D{{Key: "referral_code", Value: bson.D{{Key: "$exists", Value: false}}}},
		}},
	}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "referral_code", Value: code},
		{Key: "invitation_limit", Value: limit},
	}}}
	result, err := collection.UpdateOne(m.ctx, filter, update)
	if err != nil {
		return false, err
	}
	return result.ModifiedCount > 0, nil
}

// IsDuplicateKey reports whether an error comes from a unique index clash.
func IsDuplicateKey(err error) bool {
	return mongo.IsDuplicateKeyError(err)
}

// ClaimInvite atomically takes one invitation slot on the code's owner. The
// filter carries the limit check, so two concurrent signups racing for the
// last slot resolve inside a single document update: the second matches
// nothing. Returns (nil, nil) when the code has no remaining capacity or
// does not exist.
func (m *MongoDB) ClaimInvite(code string) (*entity.User, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionUsers)
	filter := bson.D{
		{Key: "referral_code", Value: code},
		{Key: "$expr", Value: bson.D{{Key: "$lt", Value: bson.A{"$invites_used", "$invitation_limit"}}}},
	}
	update := bson.D{{Key: "$inc", Value: bson.D{{Key: "invites_used", Value: 1}}}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var inviter entity.User
	err = collection.FindOneAndUpdate(m.ctx, filter, update, opts).Decode(&inviter)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, m.findError(err)
	}
	return &inviter, nil
}

// ReleaseInvite hands a claimed slot back, used when the signup that claimed
// it could not be completed.
func (m *MongoDB) ReleaseInvite(userId string) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionUsers)
	filter := bson.D{{Key: "_id", Value: userId}, {Key: "invites_used", Value: bson.D{{Key: "$gt", Value: 0}}}}
	update := bson.D{{Key: "$inc", Value: bson.D{{Key: "invites_used", Value: -1}}}}
	_, err = collection.UpdateOne(m.ctx, filter, update)
	return err
}

// IncrementDailyPostCount performs the quota check and the counter mutation
// as one conditional update. The filter admits the write when the last reset
// is stale (new day) or the counter is still below the per-user limit; the
// pipeline update then either restarts the counter at 1 or increments it.
// Returns false when the user is over quota for the day.
func (m *MongoDB) IncrementDailyPostCount(userId string, dayStart time.Time) (bool, error) {
	connection, err := m.connect()
	if err != nil {
		return false, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionUsers)
	filter := bson.D{
		{Key: "_id", Value: userId},
		{Key: "$or", Value: bson.A{
			bson.D{{Key: "last_post_count_reset", Value: bson.D{{Key: "$lt", Value: dayStart}}}},
			bson.D{{Key: "last_post_count_reset", Value: bson.D{{Key: "$exists", Value: false}}}},
			bson.D{{Key: "$expr", Value: bson.D{{Key: "$lt", Value: bson.A{"$daily_post_count", "$daily_post_limit"}}}}},
		}},
	}
	// missing last_post_count_reset sorts before any date, so $lt covers the
	// never-posted case inside the $cond as well
	update := bson.A{
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "daily_post_count", Value: bson.D{{Key: "$cond", Value: bson.A{
				bson.D{{Key: "$lt", Value: bson.A{"$last_post_count_reset", dayStart}}},
				1,
				bson.D{{Key: "$add", Value: bson.A{"$daily_post_count", 1}}},
			}}}},
			{Key: "last_post_count_reset", Value: dayStart},
		}}},
	}
	result, err := collection.UpdateOne(m.ctx, filter, update)
	if err != nil {
		return false, err
	}
	return result.ModifiedCount > 0, nil
}

// DecrementDailyPostCount releases a quota slot after a failed listing
// insert, keeping the counter aligned with the rows that actually exist.
func (m *MongoDB) DecrementDailyPostCount(userId string) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionUsers)
	filter := bson.D{{Key: "_id", Value: userId}, {Key: "daily_post_count", Value: bson.D{{Key: "$gt", Value: 0}}}}
	update := bson.D{{Key: "$inc", Value: bson.D{{Key: "daily_post_count", Value: -1}}}}
	_, err = collection.UpdateOne(m.ctx, filter, update)
	return err
}

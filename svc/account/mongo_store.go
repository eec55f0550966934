package account

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// DefaultMongoCollection is the collection used by NewMongoStore.
const DefaultMongoCollection = "users"

type userDocument struct {
	ID             string     `bson:"_id"`
	Email          string     `bson:"email"`
	PasswordHash   string     `bson:"password_hash"`
	ResetTokenHash string     `bson:"reset_token_hash,omitempty"`
	ResetExpiresAt *time.Time `bson:"reset_expires_at,omitempty"`
	Profile        struct {
		Name     string `bson:"name,omitempty"`
		Gender   string `bson:"gender,omitempty"`
		Location string `bson:"location,omitempty"`
		Website  string `bson:"website,omitempty"`
		Picture  string `bson:"picture,omitempty"`
	} `bson:"profile"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func toDocument(u *User) userDocument {
	d := userDocument{
		ID:             u.ID.String(),
		Email:          u.Email,
		PasswordHash:   u.PasswordHash,
		ResetTokenHash: u.ResetTokenHash,
		ResetExpiresAt: u.ResetExpiresAt,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
	d.Profile.Name = u.Profile.Name
	d.Profile.Gender = u.Profile.Gender
	d.Profile.Location = u.Profile.Location
	d.Profile.Website = u.Profile.Website
	d.Profile.Picture = u.Profile.Picture
	return d
}

func (d userDocument) user() (*User, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, errors.Join(ErrStoreFailure, err)
	}
	return &User{
		ID:             id,
		Email:          d.Email,
		PasswordHash:   d.PasswordHash,
		ResetTokenHash: d.ResetTokenHash,
		ResetExpiresAt: d.ResetExpiresAt,
		Profile: Profile{
			Name:     d.Profile.Name,
			Gender:   d.Profile.Gender,
			Location: d.Profile.Location,
			Website:  d.Profile.Website,
			Picture:  d.Profile.Picture,
		},
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}, nil
}

// MongoStore keeps users in a MongoDB collection with a unique index on email.
type MongoStore struct {
	coll *mongo.Collection
}

// NewMongoStore returns a store over db.collection. Call EnsureIndexes once
// at startup; uniqueness depends on it.
func NewMongoStore(db *mongo.Database, collection string) *MongoStore {
	if collection == "" {
		collection = DefaultMongoCollection
	}
	return &MongoStore{coll: db.Collection(collection)}
}

// EnsureIndexes creates the unique email index and the reset token index.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("email_unique"),
		},
		{
			Keys:    bson.D{{Key: "reset_token_hash", Value: 1}},
			Options: options.Index().SetSparse(true).SetName("reset_token_hash"),
		},
	})
	if err != nil {
		return errors.Join(ErrStoreFailure, err)
	}
	return nil
}

func (s *MongoStore) findOne(ctx context.Context, filter bson.D) (*User, error) {
	var d userDocument
	if err := s.coll.FindOne(ctx, filter).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, errors.Join(ErrStoreFailure, err)
	}
	return d.user()
}

func (s *MongoStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	return s.findOne(ctx, bson.D{{Key: "email", Value: email}})
}

func (s *MongoStore) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.findOne(ctx, bson.D{{Key: "_id", Value: id.String()}})
}

func (s *MongoStore) FindByResetToken(ctx context.Context, digest string) (*User, error) {
	if digest == "" {
		return nil, ErrUserNotFound
	}
	return s.findOne(ctx, bson.D{{Key: "reset_token_hash", Value: digest}})
}

func (s *MongoStore) Insert(ctx context.Context, u *User) error {
	if _, err := s.coll.InsertOne(ctx, toDocument(u)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrEmailAlreadyExists
		}
		return errors.Join(ErrStoreFailure, err)
	}
	return nil
}

func (s *MongoStore) Save(ctx context.Context, u *User) error {
	res, err := s.coll.ReplaceOne(ctx, bson.D{{Key: "_id", Value: u.ID.String()}}, toDocument(u))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrEmailAlreadyExists
		}
		return errors.Join(ErrStoreFailure, err)
	}
	if res.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *MongoStore) DeleteByID(ctx context.Context, id uuid.UUID) error {
	res, err := s.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id.String()}})
	if err != nil {
		return errors.Join(ErrStoreFailure, err)
	}
	if res.DeletedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

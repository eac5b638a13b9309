package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"sessiongate/internal/auth/models"
	"sessiongate/internal/platform/metrics"
	id "sessiongate/pkg/domain"
	"sessiongate/pkg/platform/sentinel"
)

// UsersCollection holds one document per identity.
const UsersCollection = "users"

type identityDocument struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Email        string             `bson:"email"`
	PasswordHash string             `bson:"password"`
	CreatedAt    time.Time          `bson:"createdAt"`
}

func (d *identityDocument) toModel() *models.Identity {
	return &models.Identity{
		ID:           id.IdentityID(d.ID.Hex()),
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		CreatedAt:    d.CreatedAt,
	}
}

// MongoStore persists identities in a MongoDB collection with a unique index
// on email.
type MongoStore struct {
	db         *mongo.Database
	collection *mongo.Collection
	metrics    *metrics.Metrics
}

type MongoOption func(*MongoStore)

func WithMongoMetrics(m *metrics.Metrics) MongoOption {
	return func(s *MongoStore) {
		s.metrics = m
	}
}

func NewMongo(db *mongo.Database, opts ...MongoOption) *MongoStore {
	s := &MongoStore{db: db, collection: db.Collection(UsersCollection)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureIndexes creates the unique email index. Safe to call on every start.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("email_unique"),
	})
	if err != nil {
		return fmt.Errorf("create users email index: %w", err)
	}
	return nil
}

func (s *MongoStore) FindByEmail(ctx context.Context, email string) (*models.Identity, error) {
	defer s.observe("find_by_email", time.Now())
	return s.findOne(ctx, bson.M{"email": email})
}

// FindByID treats an id that is not a valid ObjectID hex as absent.
func (s *MongoStore) FindByID(ctx context.Context, identityID id.IdentityID) (*models.Identity, error) {
	oid, err := primitive.ObjectIDFromHex(identityID.String())
	if err != nil {
		return nil, sentinel.ErrNotFound
	}
	defer s.observe("find_by_id", time.Now())
	return s.findOne(ctx, bson.M{"_id": oid})
}

func (s *MongoStore) findOne(ctx context.Context, filter bson.M) (*models.Identity, error) {
	var doc identityDocument
	err := s.collection.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find identity: %w", err)
	}
	return doc.toModel(), nil
}

func (s *MongoStore) Insert(ctx context.Context, email, passwordHash string) (id.IdentityID, error) {
	defer s.observe("insert", time.Now())

	doc := identityDocument{
		ID:           primitive.NewObjectID(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", sentinel.ErrConflict
		}
		return "", fmt.Errorf("insert identity: %w", err)
	}
	return id.IdentityID(doc.ID.Hex()), nil
}

func (s *MongoStore) Count(ctx context.Context) (int64, error) {
	defer s.observe("count", time.Now())
	n, err := s.collection.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("count identities: %w", err)
	}
	return n, nil
}

func (s *MongoStore) IsAlive(ctx context.Context) bool {
	return s.db.Client().Ping(ctx, readpref.Primary()) == nil
}

func (s *MongoStore) observe(op string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveStoreOp("mongo", op, start)
	}
}

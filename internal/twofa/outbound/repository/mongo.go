package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/twofa/entity"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoConfig configures the MongoDB backend.
type MongoConfig struct {
	URL        string
	Database   string
	Collection string
}

// Mongo stores one document per user, keyed by the user id.
type Mongo struct {
	client *mongo.Client
	coll   *mongo.Collection
	tracing
}

type mongoUser struct {
	ID          string    `bson:"_id"`
	Email       string    `bson:"email"`
	Name        string    `bson:"name"`
	Password    string    `bson:"password"`
	OTPEnabled  bool      `bson:"otp_enabled"`
	OTPVerified bool      `bson:"otp_verified"`
	OTPBase32   *string   `bson:"otp_base32"`
	OTPAuthURL  *string   `bson:"otp_auth_url"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

func (m mongoUser) entity() *entity.User {
	return &entity.User{
		ID:           m.ID,
		Email:        m.Email,
		Name:         m.Name,
		PasswordHash: m.Password,
		OTPEnabled:   m.OTPEnabled,
		OTPVerified:  m.OTPVerified,
		OTPSecret:    m.OTPBase32,
		OTPAuthURL:   m.OTPAuthURL,
		CreatedAt:    m.CreatedAt.UTC(),
		UpdatedAt:    m.UpdatedAt.UTC(),
	}
}

// NewMongo connects, pings and makes sure the unique email index exists.
func NewMongo(ctx context.Context, cfg MongoConfig, ins instrument.Instrumentation) (*Mongo, error) {
	if cfg.Database == "" {
		cfg.Database = "otpgate"
	}
	if cfg.Collection == "" {
		cfg.Collection = "users"
	}

	client, err := mongo.Connect(options.Client().ApplyURI(cfg.URL))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	coll := client.Database(cfg.Database).Collection(cfg.Collection)
	_, err = coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "name", Value: 1}}},
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("create mongo indexes: %w", err)
	}

	return &Mongo{client: client, coll: coll, tracing: tracing{ins: ins, backend: "mongodb"}}, nil
}

func (m *Mongo) mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return goerror.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return goerror.ErrConflict
	default:
		return err
	}
}

func (m *Mongo) FindByCustomField(ctx context.Context, field entity.Field, value string) (u *entity.User, err error) {
	ctx, span := m.start(ctx, "FindByCustomField")
	defer func() { m.end(span, err) }()

	var key string
	switch field {
	case entity.FieldID:
		key = "_id"
	case entity.FieldEmail:
		key, value = "email", entity.NormalizeEmail(value)
	case entity.FieldName:
		key = "name"
	default:
		return nil, ErrUnsupportedField
	}

	var doc mongoUser
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	if err = m.coll.FindOne(ctx, bson.D{{Key: key, Value: value}}, opts).Decode(&doc); err != nil {
		return nil, m.mapError(err)
	}

	return doc.entity(), nil
}

func (m *Mongo) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	return m.FindByCustomField(ctx, entity.FieldEmail, email)
}

func (m *Mongo) RegisterByEmail(ctx context.Context, reg entity.Registration) (err error) {
	ctx, span := m.start(ctx, "RegisterByEmail")
	defer func() { m.end(span, err) }()

	_, err = m.coll.InsertOne(ctx, mongoUser{
		ID:        reg.ID,
		Email:     entity.NormalizeEmail(reg.Email),
		Name:      reg.Name,
		Password:  reg.PasswordHash,
		CreatedAt: reg.CreatedAt.UTC(),
		UpdatedAt: reg.CreatedAt.UTC(),
	})

	return m.mapError(err)
}

func (m *Mongo) UpdateOTP(ctx context.Context, id string, otp entity.OTP, updatedAt time.Time) (u *entity.User, err error) {
	ctx, span := m.start(ctx, "UpdateOTP")
	defer func() { m.end(span, err) }()

	if err = otp.Validate(); err != nil {
		return nil, err
	}

	update := bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "otp_enabled", Value: otp.Enabled},
			{Key: "otp_verified", Value: otp.Verified},
			{Key: "otp_base32", Value: otp.Secret},
			{Key: "otp_auth_url", Value: otp.AuthURL},
		}},
		{Key: "$max", Value: bson.D{{Key: "updated_at", Value: updatedAt.UTC()}}},
	}

	var doc mongoUser
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err = m.coll.FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: id}}, update, opts).Decode(&doc); err != nil {
		return nil, m.mapError(err)
	}

	return doc.entity(), nil
}

func (m *Mongo) Ping(ctx context.Context) (err error) {
	ctx, span := m.start(ctx, "Ping")
	defer func() { m.end(span, err) }()

	return m.client.Ping(ctx, nil)
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

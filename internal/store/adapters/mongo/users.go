package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dropDatabas3/codepulse/internal/domain/repository"
)

// userDoc es la forma persistida. Los nombres de campo son los que ya usa la
// colección users (clerkId, profileImage, timestamps camelCase).
type userDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	ExternalID   string             `bson:"clerkId,omitempty"`
	Email        string             `bson:"email,omitempty"`
	Name         string             `bson:"name"`
	ProfileImage string             `bson:"profileImage"`
	CreatedAt    time.Time          `bson:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt"`
}

func (d *userDoc) toDomain() *repository.User {
	return &repository.User{
		ID:           d.ID.Hex(),
		ExternalID:   d.ExternalID,
		Email:        d.Email,
		Name:         d.Name,
		ProfileImage: d.ProfileImage,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

type userRepo struct {
	coll *mongo.Collection
	now  func() time.Time
}

func newUserRepo(coll *mongo.Collection) *userRepo {
	return &userRepo{coll: coll, now: func() time.Time { return time.Now().UTC() }}
}

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func (r *userRepo) findOne(ctx context.Context, filter bson.M) (*repository.User, error) {
	var doc userDoc
	err := r.coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mongo: find user: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *userRepo) GetByExternalID(ctx context.Context, externalID string) (*repository.User, error) {
	if externalID == "" {
		return nil, repository.ErrInvalidInput
	}
	return r.findOne(ctx, bson.M{"clerkId": externalID})
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*repository.User, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, repository.ErrInvalidInput
	}
	return r.findOne(ctx, bson.M{"email": email})
}

// CreateIfAbsent hace un upsert con $setOnInsert filtrando por clerkId: si el
// documento ya existe no se toca. clerkId sale del filtro de igualdad.
// Un duplicate key sobre clerkId es la carrera perdida (se relee); sobre email
// es ErrConflict.
func (r *userRepo) CreateIfAbsent(ctx context.Context, in repository.CreateUserInput) (*repository.User, bool, error) {
	if in.ExternalID == "" {
		return nil, false, repository.ErrInvalidInput
	}

	now := r.now()
	onInsert := bson.M{
		"name":         in.Name,
		"profileImage": in.ProfileImage,
		"createdAt":    now,
		"updatedAt":    now,
	}
	if email := normalizeEmail(in.Email); email != "" {
		onInsert["email"] = email
	}

	res, err := r.coll.UpdateOne(ctx,
		bson.M{"clerkId": in.ExternalID},
		bson.M{"$setOnInsert": onInsert},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			if u, gerr := r.GetByExternalID(ctx, in.ExternalID); gerr == nil {
				return u, false, nil
			}
			return nil, false, fmt.Errorf("mongo: create user: %w", repository.ErrConflict)
		}
		return nil, false, fmt.Errorf("mongo: create user: %w", err)
	}

	u, err := r.GetByExternalID(ctx, in.ExternalID)
	if err != nil {
		return nil, false, err
	}
	return u, res.UpsertedCount > 0, nil
}

func (r *userRepo) Update(ctx context.Context, userID string, in repository.UpdateUserInput) (*repository.User, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, repository.ErrNotFound
	}

	filter := bson.M{"_id": oid}
	if in.IfExternalID != nil {
		if *in.IfExternalID == "" {
			// sin binding: campo ausente, null o vacío
			filter["clerkId"] = bson.M{"$in": bson.A{nil, ""}}
		} else {
			filter["clerkId"] = *in.IfExternalID
		}
	}

	set := bson.M{"updatedAt": r.now()}
	if in.ExternalID != nil {
		set["clerkId"] = *in.ExternalID
	}
	if in.Name != nil {
		set["name"] = *in.Name
	}
	if in.ProfileImage != nil {
		set["profileImage"] = *in.ProfileImage
	}

	var doc userDoc
	err = r.coll.FindOneAndUpdate(ctx, filter, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	switch {
	case err == nil:
		return doc.toDomain(), nil
	case mongo.IsDuplicateKeyError(err):
		return nil, fmt.Errorf("mongo: update user: %w", repository.ErrConflict)
	case errors.Is(err, mongo.ErrNoDocuments):
		if in.IfExternalID == nil {
			return nil, repository.ErrNotFound
		}
		n, cerr := r.coll.CountDocuments(ctx, bson.M{"_id": oid})
		if cerr != nil {
			return nil, fmt.Errorf("mongo: update user: %w", cerr)
		}
		if n == 0 {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("mongo: update user: binding changed: %w", repository.ErrConflict)
	default:
		return nil, fmt.Errorf("mongo: update user: %w", err)
	}
}

// EnsureIndexes crea índices únicos parciales: documentos sin clerkId o sin
// email (registros viejos) no colisionan entre sí.
func (r *userRepo) EnsureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "clerkId", Value: 1}},
			Options: options.Index().
				SetName("uniq_clerk_id").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"clerkId": bson.M{"$type": "string"}}),
		},
		{
			Keys: bson.D{{Key: "email", Value: 1}},
			Options: options.Index().
				SetName("uniq_email").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"email": bson.M{"$type": "string"}}),
		},
	}
	if _, err := r.coll.Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("mongo: ensure indexes: %w", err)
	}
	return nil
}

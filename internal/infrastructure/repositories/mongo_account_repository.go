package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/you/accountsvc/domain"
)

// MongoAccountRepository implements domain.AccountRepository on a MongoDB collection
type MongoAccountRepository struct {
	collection *mongo.Collection
	now        func() time.Time
}

// mongoAccount is the stored document shape
type mongoAccount struct {
	ID                string     `bson:"_id"`
	Username          string     `bson:"username"`
	Email             string     `bson:"email"`
	PhoneNumber       string     `bson:"phone_number"`
	PasswordHash      string     `bson:"password"`
	IsEmailVerified   bool       `bson:"is_email_verified"`
	ResetToken        *string    `bson:"reset_token,omitempty"`
	ResetTokenExpires *time.Time `bson:"reset_token_expires,omitempty"`
	ProfilePictureURL string     `bson:"profile_picture_url,omitempty"`
	Role              string     `bson:"role"`
	CreatedAt         time.Time  `bson:"created_at"`
	UpdatedAt         time.Time  `bson:"updated_at"`
}

// NewMongoAccountRepository creates a repository over collection
func NewMongoAccountRepository(collection *mongo.Collection) *MongoAccountRepository {
	return &MongoAccountRepository{collection: collection, now: time.Now}
}

// EnsureIndexes creates the unique identity indexes and the reset expiry index
func (r *MongoAccountRepository) EnsureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "phone_number", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "reset_token_expires", Value: 1}}, Options: options.Index().SetSparse(true)},
	}
	if _, err := r.collection.Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("failed to create account indexes: %w", err)
	}
	return nil
}

// Create implements domain.AccountRepository
func (r *MongoAccountRepository) Create(ctx context.Context, account *domain.Account) error {
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	now := r.now().UTC()
	account.CreatedAt, account.UpdatedAt = now, now

	if _, err := r.collection.InsertOne(ctx, toMongoAccount(account)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrDuplicateIdentity
		}
		return err
	}
	return nil
}

// FindByID implements domain.AccountRepository
func (r *MongoAccountRepository) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

// FindByIdentity implements domain.AccountRepository
func (r *MongoAccountRepository) FindByIdentity(ctx context.Context, field domain.IdentityField, value string) (*domain.Account, error) {
	filter, err := identityFilter(field, value)
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, filter)
}

// FindByActiveResetToken implements domain.AccountRepository
func (r *MongoAccountRepository) FindByActiveResetToken(ctx context.Context, email, token string, now time.Time) (*domain.Account, error) {
	return r.findOne(ctx, bson.M{
		"email":               email,
		"reset_token":         token,
		"reset_token_expires": bson.M{"$gt": now.UTC()},
	})
}

// UpdateFields implements domain.AccountRepository
func (r *MongoAccountRepository) UpdateFields(ctx context.Context, id string, patch domain.AccountPatch) error {
	update := patchDocument(patch, r.now().UTC())
	if update == nil {
		return nil
	}
	result, err := r.collection.UpdateByID(ctx, id, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

// Delete implements domain.AccountRepository
func (r *MongoAccountRepository) Delete(ctx context.Context, id string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

// List implements domain.AccountRepository
func (r *MongoAccountRepository) List(ctx context.Context) ([]*domain.Account, error) {
	cursor, err := r.collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []mongoAccount
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	accounts := make([]*domain.Account, 0, len(docs))
	for i := range docs {
		accounts = append(accounts, docs[i].toDomain())
	}
	return accounts, nil
}

// RevokeResetToken implements domain.AccountRepository
func (r *MongoAccountRepository) RevokeResetToken(ctx context.Context, token string) (int64, error) {
	result, err := r.collection.UpdateMany(ctx, bson.M{"reset_token": token}, clearResetDocument(r.now().UTC()))
	if err != nil {
		return 0, err
	}
	return result.ModifiedCount, nil
}

// ClearExpiredResetTokens implements domain.AccountRepository
func (r *MongoAccountRepository) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	filter := bson.M{"reset_token_expires": bson.M{"$lte": now.UTC()}}
	result, err := r.collection.UpdateMany(ctx, filter, clearResetDocument(r.now().UTC()))
	if err != nil {
		return 0, err
	}
	return result.ModifiedCount, nil
}

func (r *MongoAccountRepository) findOne(ctx context.Context, filter bson.M) (*domain.Account, error) {
	var doc mongoAccount
	if err := r.collection.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	return doc.toDomain(), nil
}

func identityFilter(field domain.IdentityField, value string) (bson.M, error) {
	switch field {
	case domain.FieldID:
		return bson.M{"_id": value}, nil
	case domain.FieldUsername:
		return bson.M{"username": value}, nil
	case domain.FieldEmail:
		return bson.M{"email": value}, nil
	case domain.FieldPhone:
		return bson.M{"phone_number": value}, nil
	}
	return nil, domain.ErrUnsupportedIdentity
}

// patchDocument builds the update for patch, or nil when the patch is empty
func patchDocument(patch domain.AccountPatch, now time.Time) bson.M {
	if patch.IsEmpty() {
		return nil
	}
	set := bson.M{"updated_at": now}
	if patch.PasswordHash != nil {
		set["password"] = *patch.PasswordHash
	}
	if patch.IsEmailVerified != nil {
		set["is_email_verified"] = *patch.IsEmailVerified
	}
	if patch.ClearResetToken {
		return bson.M{"$set": set, "$unset": bson.M{"reset_token": "", "reset_token_expires": ""}}
	}
	if patch.ResetToken != nil {
		set["reset_token"] = *patch.ResetToken
	}
	if patch.ResetTokenExpires != nil {
		set["reset_token_expires"] = patch.ResetTokenExpires.UTC()
	}
	return bson.M{"$set": set}
}

func clearResetDocument(now time.Time) bson.M {
	return patchDocument(domain.AccountPatch{ClearResetToken: true}, now)
}

func toMongoAccount(account *domain.Account) *mongoAccount {
	doc := &mongoAccount{
		ID:                account.ID,
		Username:          account.Username,
		Email:             account.Email,
		PhoneNumber:       account.PhoneNumber,
		PasswordHash:      account.PasswordHash,
		IsEmailVerified:   account.IsEmailVerified,
		ResetToken:        account.ResetToken,
		ProfilePictureURL: account.ProfilePictureURL,
		Role:              account.Role,
		CreatedAt:         account.CreatedAt,
		UpdatedAt:         account.UpdatedAt,
	}
	if account.ResetTokenExpires != nil {
		expires := account.ResetTokenExpires.UTC()
		doc.ResetTokenExpires = &expires
	}
	if doc.Role == "" {
		doc.Role = domain.RoleUser
	}
	return doc
}

func (d *mongoAccount) toDomain() *domain.Account {
	return &domain.Account{
		ID:                d.ID,
		Username:          d.Username,
		Email:             d.Email,
		PhoneNumber:       d.PhoneNumber,
		PasswordHash:      d.PasswordHash,
		IsEmailVerified:   d.IsEmailVerified,
		ResetToken:        d.ResetToken,
		ResetTokenExpires: d.ResetTokenExpires,
		ProfilePictureURL: d.ProfilePictureURL,
		Role:              d.Role,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}
}

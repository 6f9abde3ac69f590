package repositories

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/you/accountsvc/domain"
)

// AccountRepositoryImpl implements domain.AccountRepository using GORM
type AccountRepositoryImpl struct {
	db *gorm.DB
}

// DBAccount represents the database model for Account (with GORM tags)
type DBAccount struct {
	ID                string     `gorm:"primaryKey;size:36"`
	Username          string     `gorm:"uniqueIndex;size:255;not null"`
	Email             string     `gorm:"uniqueIndex;size:255;not null"`
	PhoneNumber       string     `gorm:"uniqueIndex;size:32;not null"`
	PasswordHash      string     `gorm:"column:password;not null"`
	IsEmailVerified   bool       `gorm:"not null"`
	ResetToken        *string    `gorm:"size:1024"`
	ResetTokenExpires *time.Time `gorm:"index"`
	ProfilePictureURL string     `gorm:"column:profile_picture_url;size:2048"`
	Role              string     `gorm:"index;size:64;not null;default:user"`
	CreatedAt         time.Time  `gorm:"index"`
	UpdatedAt         time.Time
}

// TableName returns the table name for GORM
func (DBAccount) TableName() string {
	return "accounts"
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *gorm.DB) *AccountRepositoryImpl {
	return &AccountRepositoryImpl{db: db}
}

// Create implements domain.AccountRepository
func (r *AccountRepositoryImpl) Create(ctx context.Context, account *domain.Account) error {
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	dbAccount := r.domainToDB(account)
	if err := r.db.WithContext(ctx).Create(dbAccount).Error; err != nil {
		if isDuplicateKey(err) {
			return domain.ErrDuplicateIdentity
		}
		return err
	}
	account.CreatedAt = dbAccount.CreatedAt
	account.UpdatedAt = dbAccount.UpdatedAt
	return nil
}

// FindByID implements domain.AccountRepository
func (r *AccountRepositoryImpl) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	return r.first(ctx, "id = ?", id)
}

// FindByIdentity implements domain.AccountRepository
func (r *AccountRepositoryImpl) FindByIdentity(ctx context.Context, field domain.IdentityField, value string) (*domain.Account, error) {
	column, err := identityColumn(field)
	if err != nil {
		return nil, err
	}
	return r.first(ctx, column+" = ?", value)
}

// FindByActiveResetToken implements domain.AccountRepository
func (r *AccountRepositoryImpl) FindByActiveResetToken(ctx context.Context, email, token string, now time.Time) (*domain.Account, error) {
	return r.first(ctx, "email = ? AND reset_token = ? AND reset_token_expires > ?", email, token, now.UTC())
}

// UpdateFields implements domain.AccountRepository
func (r *AccountRepositoryImpl) UpdateFields(ctx context.Context, id string, patch domain.AccountPatch) error {
	updates := patchColumns(patch)
	if len(updates) == 0 {
		return nil
	}
	result := r.db.WithContext(ctx).Model(&DBAccount{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

// Delete implements domain.AccountRepository
func (r *AccountRepositoryImpl) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&DBAccount{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

// List implements domain.AccountRepository
func (r *AccountRepositoryImpl) List(ctx context.Context) ([]*domain.Account, error) {
	var rows []DBAccount
	if err := r.db.WithContext(ctx).Order("created_at, id").Find(&rows).Error; err != nil {
		return nil, err
	}
	accounts := make([]*domain.Account, 0, len(rows))
	for i := range rows {
		accounts = append(accounts, r.dbToDomain(&rows[i]))
	}
	return accounts, nil
}

// RevokeResetToken implements domain.AccountRepository
func (r *AccountRepositoryImpl) RevokeResetToken(ctx context.Context, token string) (int64, error) {
	result := r.db.WithContext(ctx).Model(&DBAccount{}).
		Where("reset_token = ?", token).
		Updates(map[string]interface{}{"reset_token": nil, "reset_token_expires": nil})
	return result.RowsAffected, result.Error
}

// ClearExpiredResetTokens implements domain.AccountRepository
func (r *AccountRepositoryImpl) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&DBAccount{}).
		Where("reset_token_expires IS NOT NULL AND reset_token_expires <= ?", now.UTC()).
		Updates(map[string]interface{}{"reset_token": nil, "reset_token_expires": nil})
	return result.RowsAffected, result.Error
}

func (r *AccountRepositoryImpl) first(ctx context.Context, query string, args ...interface{}) (*domain.Account, error) {
	var dbAccount DBAccount
	err := r.db.WithContext(ctx).Where(query, args...).First(&dbAccount).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	return r.dbToDomain(&dbAccount), nil
}

func identityColumn(field domain.IdentityField) (string, error) {
	switch field {
	case domain.FieldID:
		return "id", nil
	case domain.FieldUsername:
		return "username", nil
	case domain.FieldEmail:
		return "email", nil
	case domain.FieldPhone:
		return "phone_number", nil
	}
	return "", domain.ErrUnsupportedIdentity
}

// patchColumns maps a patch to column updates; an empty map means nothing to change
func patchColumns(patch domain.AccountPatch) map[string]interface{} {
	updates := map[string]interface{}{}
	if patch.PasswordHash != nil {
		updates["password"] = *patch.PasswordHash
	}
	if patch.IsEmailVerified != nil {
		updates["is_email_verified"] = *patch.IsEmailVerified
	}
	if patch.ClearResetToken {
		updates["reset_token"] = nil
		updates["reset_token_expires"] = nil
		return updates
	}
	if patch.ResetToken != nil {
		updates["reset_token"] = *patch.ResetToken
	}
	if patch.ResetTokenExpires != nil {
		updates["reset_token_expires"] = patch.ResetTokenExpires.UTC()
	}
	return updates
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

// domainToDB converts domain account to database account
func (r *AccountRepositoryImpl) domainToDB(account *domain.Account) *DBAccount {
	dbAccount := &DBAccount{
		ID:                account.ID,
		Username:          account.Username,
		Email:             account.Email,
		PhoneNumber:       account.PhoneNumber,
		PasswordHash:      account.PasswordHash,
		IsEmailVerified:   account.IsEmailVerified,
		ResetToken:        account.ResetToken,
		ProfilePictureURL: account.ProfilePictureURL,
		Role:              account.Role,
	}
	if account.ResetTokenExpires != nil {
		expires := account.ResetTokenExpires.UTC()
		dbAccount.ResetTokenExpires = &expires
	}
	if dbAccount.Role == "" {
		dbAccount.Role = domain.RoleUser
	}
	return dbAccount
}

// dbToDomain converts database account to domain account
func (r *AccountRepositoryImpl) dbToDomain(dbAccount *DBAccount) *domain.Account {
	return &domain.Account{
		ID:                dbAccount.ID,
		Username:          dbAccount.Username,
		Email:             dbAccount.Email,
		PhoneNumber:       dbAccount.PhoneNumber,
		PasswordHash:      dbAccount.PasswordHash,
		IsEmailVerified:   dbAccount.IsEmailVerified,
		ResetToken:        dbAccount.ResetToken,
		ResetTokenExpires: dbAccount.ResetTokenExpires,
		ProfilePictureURL: dbAccount.ProfilePictureURL,
		Role:              dbAccount.Role,
		CreatedAt:         dbAccount.CreatedAt,
		UpdatedAt:         dbAccount.UpdatedAt,
	}
}

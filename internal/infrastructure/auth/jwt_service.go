package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/you/accountsvc/domain"
)

// JWTServiceImpl implements domain.TokenService
type JWTServiceImpl struct {
	secretKey []byte
	issuer    string
	now       func() time.Time
}

// JWTOption configures a JWTServiceImpl
type JWTOption func(*JWTServiceImpl)

// WithClock replaces time.Now for issuing and verifying tokens
func WithClock(now func() time.Time) JWTOption {
	return func(j *JWTServiceImpl) { j.now = now }
}

// NewJWTService creates a new JWT service
func NewJWTService(secretKey, issuer string, opts ...JWTOption) *JWTServiceImpl {
	j := &JWTServiceImpl{
		secretKey: []byte(secretKey),
		issuer:    issuer,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Issue implements domain.TokenService
func (j *JWTServiceImpl) Issue(purpose domain.TokenPurpose, payload domain.TokenPayload, ttl time.Duration) (string, error) {
	now := j.now()
	claims := jwt.MapClaims{
		"user_id": payload.AccountID,
		"email":   payload.Email,
		"purpose": string(purpose),
		"iss":     j.issuer,
		"iat":     now.Unix(),
		"jti":     uuid.NewString(), // distinct tokens for identical payloads
	}
	if ttl > 0 {
		claims["exp"] = now.Add(ttl).Unix()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.secretKey)
}

// Verify implements domain.TokenService
func (j *JWTServiceImpl) Verify(tokenString string, purpose domain.TokenPurpose) (*domain.TokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return j.secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(j.issuer),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, domain.ErrTokenInvalid
	}
	if !token.Valid {
		return nil, domain.ErrTokenInvalid
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, domain.ErrTokenInvalid
	}

	tokenPurpose, _ := claims["purpose"].(string)
	if domain.TokenPurpose(tokenPurpose) != purpose {
		return nil, domain.ErrTokenInvalid
	}

	accountID, _ := claims["user_id"].(string)
	email, _ := claims["email"].(string)
	jti, _ := claims["jti"].(string)
	if accountID == "" && email == "" {
		return nil, domain.ErrTokenInvalid
	}

	iat, ok := claims["iat"].(float64)
	if !ok {
		return nil, domain.ErrTokenInvalid
	}

	tokenClaims := &domain.TokenClaims{
		AccountID: accountID,
		Email:     email,
		Purpose:   purpose,
		IssuedAt:  int64(iat),
		ID:        jti,
	}
	if exp, ok := claims["exp"].(float64); ok {
		tokenClaims.ExpiresAt = int64(exp)
	}

	return tokenClaims, nil
}

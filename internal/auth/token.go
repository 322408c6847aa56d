// Package auth issues and verifies the bearer tokens used for API sessions.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token kinds, carried in the typ claim.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

var (
	// ErrInvalidToken covers malformed, tampered, expired and wrong-kind tokens.
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrExpiredToken is returned alongside ErrInvalidToken for expired tokens.
	ErrExpiredToken = errors.New("token expired")
)

// Identity is the user payload embedded in every token.
type Identity struct {
	UserID     uint      `json:"id"`
	Username   string    `json:"username"`
	Nickname   string    `json:"nickname"`
	Avatar     string    `json:"avatar"`
	CreateTime time.Time `json:"create_time"`
}

// Claims is the JWT body.
type Claims struct {
	Identity
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

// Pair is a freshly issued access/refresh token pair.
type Pair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// Options configures a TokenManager.
type Options struct {
	Secret     string
	Issuer     string
	Audience   string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// TokenManager signs and verifies HS256 tokens.
type TokenManager struct {
	secret     []byte
	issuer     string
	audience   string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenManager builds a TokenManager from opts.
func NewTokenManager(opts Options) *TokenManager {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &TokenManager{
		secret:     []byte(opts.Secret),
		issuer:     opts.Issuer,
		audience:   opts.Audience,
		accessTTL:  opts.AccessTTL,
		refreshTTL: opts.RefreshTTL,
		now:        now,
	}
}

// Issue signs a new access and refresh token over the same identity.
func (m *TokenManager) Issue(id Identity) (*Pair, error) {
	now := m.now()

	access, accessExp, err := m.sign(id, TypeAccess, now, m.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := m.sign(id, TypeRefresh, now, m.refreshTTL)
	if err != nil {
		return nil, err
	}

	return &Pair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (m *TokenManager) sign(id Identity, typ string, now time.Time, ttl time.Duration) (string, time.Time, error) {
	exp := now.Add(ttl)
	claims := Claims{
		Identity: id,
		Type:     typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(id.UserID), 10),
			Issuer:    m.issuer,
			Audience:  jwt.ClaimStrings{m.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s token: %w", typ, err)
	}
	return signed, exp, nil
}

// VerifyAccess parses an access token.
func (m *TokenManager) VerifyAccess(token string) (*Claims, error) {
	return m.verify(token, TypeAccess)
}

// VerifyRefresh parses a refresh token.
func (m *TokenManager) VerifyRefresh(token string) (*Claims, error) {
	return m.verify(token, TypeRefresh)
}

// Refresh exchanges a valid refresh token for a new pair carrying the same identity.
func (m *TokenManager) Refresh(refreshToken string) (*Pair, *Claims, error) {
	claims, err := m.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, nil, err
	}
	pair, err := m.Issue(claims.Identity)
	if err != nil {
		return nil, nil, err
	}
	return pair, claims, nil
}

func (m *TokenManager) verify(token, typ string) (*Claims, error) {
	claims := &Claims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}
	if m.audience != "" {
		opts = append(opts, jwt.WithAudience(m.audience))
	}

	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidToken, ErrExpiredToken)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims.Type != typ {
		return nil, fmt.Errorf("%w: expected %s token", ErrInvalidToken, typ)
	}
	sub, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || sub == 0 || uint(sub) != claims.UserID {
		return nil, fmt.Errorf("%w: subject mismatch", ErrInvalidToken)
	}

	return claims, nil
}

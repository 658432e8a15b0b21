// Package jwttoken issues and validates the HS256 access tokens that identify
// registry callers and their organization.
package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "breachledger/pkg/domain"
	dErrors "breachledger/pkg/domain-errors"
)

// Claims is the access token body. The subject carries the user id.
type Claims struct {
	OrganizationID string `json:"org_id"`
	jwt.RegisteredClaims
}

type JWTService struct {
	signingKey []byte
	issuer     string
	audience   string
}

func NewJWTService(signingKey string, issuer string, audience string) *JWTService {
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
	}
}

// GenerateAccessToken is used by the token CLI and tests; the registry itself
// only validates.
func (s *JWTService) GenerateAccessToken(userID id.UserID, orgID id.OrganizationID, ttl time.Duration) (string, error) {
	issuedAt := time.Now()
	registered := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   userID.String(),
		Issuer:    s.issuer,
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
	}
	if s.audience != "" {
		registered.Audience = jwt.ClaimStrings{s.audience}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		OrganizationID:   orgID.String(),
		RegisteredClaims: registered,
	})
	return token.SignedString(s.signingKey)
}

func (s *JWTService) parserOptions() []jwt.ParserOption {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	if s.audience != "" {
		opts = append(opts, jwt.WithAudience(s.audience))
	}
	return opts
}

func (s *JWTService) keyFunc(*jwt.Token) (any, error) { return s.signingKey, nil }

// ValidateToken verifies signature, issuer, audience and expiry, and requires
// both a subject and an organization.
func (s *JWTService) ValidateToken(raw string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, s.keyFunc, s.parserOptions()...)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
	case err != nil:
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	case !parsed.Valid:
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	case claims.Subject == "" || claims.OrganizationID == "":
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token is missing subject or organization")
	}
	return claims, nil
}

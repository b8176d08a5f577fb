package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/berryevents69/Berry-Events-sub000/pkg/config"
)

var signingMethod = jwt.SigningMethodHS256

var (
	// ErrMissingUserID is returned for tokens without a usable user_id claim.
	ErrMissingUserID = errors.New("token is missing user_id")
	errNoSecret      = errors.New("jwt secret is required")
)

// MintAccessToken signs a token for payload.UserID valid from now for the
// configured number of minutes.
func MintAccessToken(cfg config.JWTConfig, now time.Time, payload AccessTokenPayload) (string, error) {
	switch {
	case cfg.Secret == "":
		return "", errNoSecret
	case cfg.Issuer == "":
		return "", errors.New("jwt issuer is required")
	case cfg.ExpirationMinutes <= 0:
		return "", errors.New("jwt expiration minutes must be positive")
	case payload.UserID == uuid.Nil:
		return "", ErrMissingUserID
	}

	id := strings.TrimSpace(payload.JTI)
	if id == "" {
		id = uuid.NewString()
	}
	ttl := time.Duration(cfg.ExpirationMinutes) * time.Minute
	token := jwt.NewWithClaims(signingMethod, AccessTokenClaims{
		UserID: payload.UserID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			Issuer:    cfg.Issuer,
			Subject:   payload.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	signed, err := token.SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}

// ParseAccessToken verifies raw against the current secret, then the
// previous one, and returns its claims. Expiry is mandatory.
func ParseAccessToken(cfg config.JWTConfig, raw string) (*AccessTokenClaims, error) {
	if cfg.Secret == "" {
		return nil, errNoSecret
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(cfg.Leeway),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	parser := jwt.NewParser(opts...)

	claims, err := parseWith(parser, raw, cfg.Secret)
	if errors.Is(err, jwt.ErrTokenSignatureInvalid) && cfg.PreviousSecret != "" {
		claims, err = parseWith(parser, raw, cfg.PreviousSecret)
	}
	if err != nil {
		return nil, err
	}
	if claims.UserID == uuid.Nil {
		return nil, ErrMissingUserID
	}
	return claims, nil
}

func parseWith(parser *jwt.Parser, raw, secret string) (*AccessTokenClaims, error) {
	claims := &AccessTokenClaims{}
	_, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	return claims, err
}

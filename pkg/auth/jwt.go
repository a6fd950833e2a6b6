package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const defaultTokenTTL = 8 * time.Hour

// ErrSignOnly is returned by GenerateToken on a service built from a public key.
var ErrSignOnly = errors.New("auth: service holds a public key only and cannot issue tokens")

// JWTConfig selects the key material. PrivateKeyPEM wins over PublicKeyPEM,
// which wins over Secret.
type JWTConfig struct {
	Secret        string
	PrivateKeyPEM string
	PublicKeyPEM  string

	Issuer     string
	Expiration time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

// JWTService issues and validates operator tokens.
type JWTService struct {
	method    jwt.SigningMethod
	signKey   interface{}
	verifyKey interface{}
	issuer    string
	ttl       time.Duration
	now       func() time.Time
}

func NewJWTService(cfg JWTConfig) (*JWTService, error) {
	svc := &JWTService{
		issuer: cfg.Issuer,
		ttl:    cfg.Expiration,
		now:    cfg.Now,
	}
	if svc.ttl <= 0 {
		svc.ttl = defaultTokenTTL
	}
	if svc.now == nil {
		svc.now = time.Now
	}

	switch {
	case cfg.PrivateKeyPEM != "":
		key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(cfg.PrivateKeyPEM))
		if err != nil {
			return nil, fmt.Errorf("parse signing key: %w", err)
		}
		svc.method, svc.signKey, svc.verifyKey = jwt.SigningMethodRS256, key, &key.PublicKey
	case cfg.PublicKeyPEM != "":
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(cfg.PublicKeyPEM))
		if err != nil {
			return nil, fmt.Errorf("parse verification key: %w", err)
		}
		svc.method, svc.verifyKey = jwt.SigningMethodRS256, key
	case cfg.Secret != "":
		secret := []byte(cfg.Secret)
		svc.method, svc.signKey, svc.verifyKey = jwt.SigningMethodHS256, secret, secret
	default:
		return nil, errors.New("auth: a secret or an RSA key is required")
	}
	return svc, nil
}

// GenerateToken signs a token for an operator carrying roles.
func (s *JWTService) GenerateToken(operator, name string, roles []string) (string, error) {
	if s.signKey == nil {
		return "", ErrSignOnly
	}
	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   operator,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		Name:  name,
		Roles: roles,
	}
	token, err := jwt.NewWithClaims(s.method, claims).SignedString(s.signKey)
	if err != nil {
		return "", fmt.Errorf("sign token for %s: %w", operator, err)
	}
	return token, nil
}

// ValidateToken checks signature, expiry and issuer and requires a subject.
func (s *JWTService) ValidateToken(raw string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	claims := &Claims{}
	if _, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return s.verifyKey, nil
	}, opts...); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if claims.Operator() == "" {
		return nil, errors.New("token has no operator subject")
	}
	return claims, nil
}

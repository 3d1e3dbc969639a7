package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/updateme/engine/internal/core/ports"
)

// OpsRole is the only role accepted by the ops API.
const OpsRole = "ops"

var ErrOpsSecretMissing = errors.New("ops jwt secret not configured")

type opsClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// OpsAuthService issues HS256 tokens for operators.
type OpsAuthService struct {
	secret []byte
	issuer string
	now    func() time.Time
}

var _ ports.OpsAuthService = (*OpsAuthService)(nil)

func NewOpsAuthService(secret, issuer string) *OpsAuthService {
	if issuer == "" {
		issuer = "updateme"
	}
	return &OpsAuthService{secret: []byte(secret), issuer: issuer, now: time.Now}
}

func (s *OpsAuthService) IssueToken(subject string, ttl time.Duration) (string, error) {
	if len(s.secret) == 0 {
		return "", ErrOpsSecretMissing
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	now := s.now()
	claims := &opsClaims{
		Role: OpsRole,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    s.issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign ops token: %w", err)
	}
	return signed, nil
}

func (s *OpsAuthService) ValidateToken(tokenString string) (*ports.OpsClaims, error) {
	if len(s.secret) == 0 {
		return nil, ErrOpsSecretMissing
	}
	token, err := jwt.ParseWithClaims(tokenString, &opsClaims{}, func(token *jwt.Token) (interface{}, error) {
		// Ensure the token's signing method is HMAC (prevent alg confusion)
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	claims, ok := token.Claims.(*opsClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}
	if claims.Role != OpsRole {
		return nil, fmt.Errorf("role %q not allowed", claims.Role)
	}
	return &ports.OpsClaims{Subject: claims.Subject, Role: claims.Role}, nil
}

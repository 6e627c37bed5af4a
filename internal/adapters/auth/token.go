package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"admissionscheduling/internal/domain"
)

type jwtClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

type jwtVerifier struct {
	secret []byte
}

// NewJWTVerifier returns a TokenVerifier for HS256 tokens issued by the
// admissions identity service. The subject claim carries the user ID and
// the role claim one of applicant, coordinator or admin.
func NewJWTVerifier(secret string) domain.TokenVerifier {
	return &jwtVerifier{secret: []byte(secret)}
}

func (v *jwtVerifier) Verify(tokenString string) (domain.Actor, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &jwtClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return domain.Actor{}, fmt.Errorf("parse token: %w", err)
	}
	claims, ok := parsed.Claims.(*jwtClaims)
	if !ok || !parsed.Valid {
		return domain.Actor{}, fmt.Errorf("invalid token claims")
	}
	if claims.Subject == "" {
		return domain.Actor{}, fmt.Errorf("token missing subject")
	}
	role := domain.Role(claims.Role)
	switch role {
	case domain.RoleApplicant, domain.RoleCoordinator, domain.RoleAdmin:
	default:
		return domain.Actor{}, fmt.Errorf("unknown role %q", claims.Role)
	}
	return domain.Actor{ID: claims.Subject, Role: role}, nil
}

// SignToken creates an HS256 token for the given actor. Used by tooling
// and tests; production tokens come from the identity service.
func SignToken(secret string, actor domain.Actor, expiry time.Duration) (string, error) {
	now := time.Now()
	claims := jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		},
		Role: string(actor.Role),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

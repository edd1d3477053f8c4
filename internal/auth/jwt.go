package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionCookieName holds the signed session token for browser clients.
const SessionCookieName = "coreflow_session"

type Manager struct {
	Secret     []byte
	SessionTTL time.Duration
	Issuer     string
}

type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

func (m *Manager) NewSessionToken(p Principal) (string, error) {
	if len(m.Secret) == 0 {
		return "", errors.New("session secret not configured")
	}
	now := time.Now()
	claims := Claims{
		Username: p.Username,
		Role:     p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID,
			Issuer:    m.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.SessionTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.Secret)
}

func (m *Manager) Parse(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return m.Secret, nil
	}, jwt.WithIssuer(m.Issuer))
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// PrincipalFromToken validates tokenStr and returns the principal it carries.
func (m *Manager) PrincipalFromToken(tokenStr string) (*Principal, error) {
	claims, err := m.Parse(tokenStr)
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" || !IsValidRole(claims.Role) {
		return nil, errors.New("invalid session claims")
	}
	return &Principal{UserID: claims.Subject, Username: claims.Username, Role: claims.Role}, nil
}

// Package auth issues and verifies the JWT session tokens that bind a
// websocket or HTTP caller to a seat in a specific game.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidToken = errors.New("auth: invalid token")
	ErrWrongGame    = errors.New("auth: token is for a different game")
	ErrBadPassword  = errors.New("auth: wrong game password")
)

// Claims binds a token to one seat (or spectator slot) in one game.
type Claims struct {
	GameID    uuid.UUID `json:"gameId"`
	PlayerID  string    `json:"playerId"`
	Spectator bool      `json:"spectator,omitempty"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies session tokens with a shared HMAC secret.
type Issuer struct {
	secret []byte
	ttl    time.Duration
}

// DefaultTokenTTL covers a long evening of play; idle games are evicted well
// before tokens expire.
const DefaultTokenTTL = 24 * time.Hour

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Issuer{secret: []byte(secret), ttl: ttl}
}

// Issue mints a token for one player or spectator in one game.
func (i *Issuer) Issue(gameID uuid.UUID, playerID string, spectator bool) (string, error) {
	now := time.Now()
	claims := &Claims{
		GameID:    gameID,
		PlayerID:  playerID,
		Spectator: spectator,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   playerID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses a token and checks it belongs to gameID.
func (i *Issuer) Verify(tokenString string, gameID uuid.UUID) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.GameID != gameID {
		return nil, ErrWrongGame
	}
	return claims, nil
}

// HashPassword hashes an optional per-game join password.
func HashPassword(password string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
}

// CheckPassword compares a join attempt against the stored hash.
func CheckPassword(hash []byte, password string) error {
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return ErrBadPassword
	}
	return nil
}

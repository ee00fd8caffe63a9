package app

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/form3tech-oss/jwt-go"
)

// ShareService issues and validates tokens that grant read access to a
// published poem, so finished poems can be shared outside the roster.
type ShareService struct {
	shareSecret string
	shareIssuer string
	tokenTTL    time.Duration
}

const (
	ShareTokenActionRead = "read"
)

// NewShareService constructs a ShareService. ttl may be zero to use one hour.
func NewShareService(secret, issuer string, ttl time.Duration) *ShareService {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ShareService{
		shareSecret: secret,
		shareIssuer: issuer,
		tokenTTL:    ttl,
	}
}

// GenerateToken signs a share token for the poem stored under poemKey,
// requested by user.
func (s *ShareService) GenerateToken(user, action, poemKey string) (string, error) {
	if s == nil {
		return "", fmt.Errorf("share service is nil")
	}
	if user == "" {
		return "", fmt.Errorf("user is required")
	}
	if s.shareSecret == "" || s.shareIssuer == "" {
		return "", fmt.Errorf("share config is incomplete")
	}
	if action != ShareTokenActionRead {
		return "", fmt.Errorf("unsupported share action: %s", action)
	}
	if poemKey == "" {
		return "", fmt.Errorf("poem key is required for read tokens")
	}

	claims := jwt.MapClaims{
		"iss":  s.shareIssuer,
		"sub":  user,
		"exp":  time.Now().Add(s.tokenTTL).Unix(),
		"act":  action,
		"poem": poemKey,
		"jti":  fmt.Sprintf("%d-%d", time.Now().UnixNano(), rand.Int63()),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.shareSecret))
}

// ParseToken validates a share token and returns the poem key it grants
// access to.
func (s *ShareService) ParseToken(tokenString string) (string, error) {
	if s == nil {
		return "", fmt.Errorf("share service is nil")
	}
	if s.shareSecret == "" {
		return "", fmt.Errorf("share config is incomplete")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.shareSecret), nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to parse share token: %w", err)
	}
	if !token.Valid {
		return "", fmt.Errorf("share token is invalid")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("share token claims are malformed")
	}
	if act, _ := claims["act"].(string); act != ShareTokenActionRead {
		return "", fmt.Errorf("share token action is not %s", ShareTokenActionRead)
	}
	poemKey, _ := claims["poem"].(string)
	if poemKey == "" {
		return "", fmt.Errorf("share token is missing the poem claim")
	}

	return poemKey, nil
}

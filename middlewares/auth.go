package middlewares

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
)

const (
	authHeader   = "Authorization"
	bearerPrefix = "Bearer "

	// ActionDeleteLead guards single and bulk lead deletion.
	ActionDeleteLead = "lead.delete"
)

// ErrInvalidNonce is returned when an action token is missing, expired, or
// was issued for another operator or action.
var ErrInvalidNonce = errors.New("invalid security token")

// Claims is our JWT payload. Session tokens carry the operator email; action
// nonces carry the action they authorize instead.
type Claims struct {
	Email  string `json:"email,omitempty"`
	Action string `json:"action,omitempty"`
	jwt.RegisteredClaims
}

// Authenticator issues and checks operator sessions and action nonces.
type Authenticator struct {
	secret   []byte
	tokenTTL time.Duration
	nonceTTL time.Duration
	now      func() time.Time
}

func NewAuthenticator(secret string, tokenTTL, nonceTTL time.Duration) (*Authenticator, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("JWT secret not configured (set JWT_SECRET_KEY or JWT_SECRET)")
	}
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	if nonceTTL <= 0 {
		nonceTTL = 12 * time.Hour
	}
	return &Authenticator{
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		nonceTTL: nonceTTL,
		now:      time.Now,
	}, nil
}

// Middleware validates a Bearer token, enforces HS256, and populates c.Locals("userID","email").
func (a *Authenticator) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		h := c.Get(authHeader)
		if h == "" || !strings.HasPrefix(strings.ToLower(h), strings.ToLower(bearerPrefix)) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "missing/invalid Authorization header"})
		}
		raw := strings.TrimSpace(h[len(bearerPrefix):])
		if raw == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "invalid bearer token"})
		}

		claims, err := a.parse(raw)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "invalid or expired token"})
		}
		// nonces are not sessions
		if strings.TrimSpace(claims.Subject) == "" || claims.Action != "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "token missing subject"})
		}

		c.Locals("userID", claims.Subject)
		c.Locals("email", claims.Email)

		return c.Next()
	}
}

// GenerateJWT signs a new HS256 session token for the operator.
func (a *Authenticator) GenerateJWT(userID, email string) (string, error) {
	return a.sign(&Claims{
		Email:            email,
		RegisteredClaims: a.registered(userID, a.tokenTTL),
	})
}

// IssueNonce signs a short-lived token that authorizes action for userID only.
func (a *Authenticator) IssueNonce(userID, action string) (string, error) {
	return a.sign(&Claims{
		Action:           action,
		RegisteredClaims: a.registered(userID, a.nonceTTL),
	})
}

// VerifyNonce checks a token produced by IssueNonce.
func (a *Authenticator) VerifyNonce(userID, action, nonce string) error {
	if strings.TrimSpace(nonce) == "" {
		return ErrInvalidNonce
	}
	claims, err := a.parse(nonce)
	if err != nil {
		return ErrInvalidNonce
	}
	if claims.Action != action || claims.Subject != userID {
		return ErrInvalidNonce
	}
	return nil
}

func (a *Authenticator) registered(subject string, ttl time.Duration) jwt.RegisteredClaims {
	now := a.now()
	return jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
	}
}

func (a *Authenticator) sign(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

func (a *Authenticator) parse(raw string) (*Claims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	var claims Claims
	token, err := parser.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return &claims, nil
}

package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/abrezinsky/chanceraffle/internal/logger"
	"github.com/abrezinsky/chanceraffle/internal/repository"
)

const (
	CookieName      = "admin_token"
	DefaultTokenTTL = 24 * time.Hour
	issuer          = "chanceraffle"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// Words for generated admin passwords
var raffleWords = []string{
	"ticket", "prize", "lucky", "draw", "number",
	"gala", "charm", "jackpot", "winner", "chance",
	"circle", "friend", "watch", "golden", "clover",
	"star", "token", "spin", "bonus",
}

// Config holds token and hashing settings
type Config struct {
	Secret     string
	TokenTTL   time.Duration
	BcryptCost int
}

// Claims are the JWT claims issued to an administrator
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Auth handles admin authentication
type Auth struct {
	log     logger.Logger
	repo    repository.AdminRepository
	secret  []byte
	ttl     time.Duration
	cost    int
	revoked map[string]time.Time // token id -> expiry
	mu      sync.RWMutex
	now     func() time.Time
}

// New creates a new Auth instance. An empty secret is replaced by a random
// one, which invalidates tokens across restarts.
func New(log logger.Logger, repo repository.AdminRepository, cfg Config) *Auth {
	secret := cfg.Secret
	if secret == "" {
		secret = GenerateSecret()
		log.Warn("No JWT secret configured, using a random one; admin tokens will not survive a restart")
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	cost := cfg.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Auth{
		log:     log,
		repo:    repo,
		secret:  []byte(secret),
		ttl:     ttl,
		cost:    cost,
		revoked: make(map[string]time.Time),
		now:     time.Now,
	}
}

// SetClock sets a custom time source (for testing)
func (a *Auth) SetClock(now func() time.Time) {
	a.now = now
}

// GeneratePassword creates a random 3-word password
func GeneratePassword() string {
	words := make([]string, 3)
	for i := range words {
		words[i] = raffleWords[randomInt(len(raffleWords))]
	}
	return strings.Join(words, "-")
}

// GenerateSecret returns 32 random bytes, hex encoded
func GenerateSecret() string {
	b := make([]byte, 32)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// SeedAdmin makes sure the configured admin account exists. With an empty
// password an existing account is kept as is; a new one gets a generated
// password, which is returned so the caller can show it once.
func (a *Auth) SeedAdmin(ctx context.Context, email, password string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", errors.New("admin email is required")
	}

	generated := ""
	if password == "" {
		_, err := a.repo.GetAdminByEmail(ctx, email)
		if err == nil {
			return "", nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return "", err
		}
		password = GeneratePassword()
		generated = password
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return "", err
	}
	if err := a.repo.UpsertAdmin(ctx, email, string(hash)); err != nil {
		return "", err
	}
	a.log.Info("Admin account ready", "email", email)
	return generated, nil
}

// Login checks the credentials and returns a signed token with its expiry
func (a *Auth) Login(ctx context.Context, email, password string) (string, time.Time, error) {
	admin, err := a.repo.GetAdminByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return "", time.Time{}, ErrInvalidCredentials
	}
	if err != nil {
		return "", time.Time{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)) != nil {
		return "", time.Time{}, ErrInvalidCredentials
	}

	now := a.now().UTC()
	exp := now.Add(a.ttl)
	claims := Claims{
		Email: admin.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer,
			Subject:   admin.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	a.log.Info("Admin logged in", "email", admin.Email)
	return token, exp, nil
}

// Logout revokes a token until it would have expired anyway
func (a *Auth) Logout(token string) {
	claims, err := a.ValidateToken(token)
	if err != nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.revoked[claims.ID] = claims.ExpiresAt.Time
	a.pruneLocked()
}

// ValidateToken parses a token and checks its signature, expiry and revocation
func (a *Auth) ValidateToken(token string) (*Claims, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	a.mu.RLock()
	_, revoked := a.revoked[claims.ID]
	a.mu.RUnlock()
	if revoked {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// pruneLocked drops revocations for tokens that have expired
func (a *Auth) pruneLocked() {
	now := a.now()
	for id, exp := range a.revoked {
		if now.After(exp) {
			delete(a.revoked, id)
		}
	}
}

// TokenFromRequest returns the bearer token, falling back to the cookie
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if cookie, err := r.Cookie(CookieName); err == nil {
		return cookie.Value
	}
	return ""
}

type contextKey struct{}

// AdminEmail returns the authenticated admin's email stored by RequireAuthAPI
func AdminEmail(ctx context.Context) string {
	email, _ := ctx.Value(contextKey{}).(string)
	return email
}

// RequireAuthAPI middleware for API endpoints (returns 401)
func (a *Auth) RequireAuthAPI(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := a.ValidateToken(TokenFromRequest(r))
		if err == nil {
			ctx := context.WithValue(r.Context(), contextKey{}, claims.Email)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"code":"UNAUTHORIZED","error":"Unauthorized - please log in"}`))
	})
}

// SetSessionCookie sets the token cookie on the response
func SetSessionCookie(w http.ResponseWriter, token string, exp time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  exp,
	})
}

// ClearSessionCookie removes the token cookie
func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

// randomInt returns a uniform random int in [0, max)
func randomInt(max int) int {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		return 0
	}
	return int(n.Int64())
}

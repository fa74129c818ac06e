// Package fixtures seeds the auth backend's store with a known user, an
// active session, and a registered OAuth2 client, bypassing the
// backend's own registration flows. The seeder only writes; all later
// mutation happens inside the backend.
package fixtures

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	errs "github.com/jrsteele09/go-auth-e2e/internal/errors"
)

// User mirrors the backend's users table row.
type User struct {
	ID          string
	DiscordID   string
	Username    string
	AvatarURL   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	LastLoginAt time.Time
}

// Session mirrors the backend's sessions table row. Token is the
// opaque cookie credential that drives both JWT issuance and logout.
type Session struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// ClientApp mirrors the backend's client_apps table row. SecretHash is
// what gets stored; the plaintext lives only in the Bundle.
type ClientApp struct {
	ID           string
	ClientID     string
	Name         string
	SecretHash   string
	RedirectURIs []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Bundle is everything downstream flow stages need from seeding. The
// client secret is returned in plaintext because the token exchange
// sends it over the wire; the stored value is a hash.
type Bundle struct {
	UserID       string
	SessionToken string
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

const (
	plainSecret        = "test_secret"
	defaultRedirectURI = "http://localhost:3000/callback"
	sessionTTL         = 7 * 24 * time.Hour
	bcryptCost         = 10
)

// fallbackSecretHash is a precomputed bcrypt hash of plainSecret, used
// when hashing fails so runs stay deterministic without the dependency.
const fallbackSecretHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// Builder creates one run's worth of fixture rows.
type Builder struct {
	now func() time.Time
}

type Option func(*Builder)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

func NewBuilder(opts ...Option) *Builder {
	b := &Builder{now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Seed writes the three fixture rows through the given store and
// returns the identifiers later stages thread through the flow. All
// writes are upserts keyed on the row id, so reseeding replaces rather
// than collides. Human-readable identifiers carry a unix-seconds
// suffix; two seeds within the same second reuse them, which upsert
// semantics tolerate.
func (b *Builder) Seed(ctx context.Context, store Store) (*Bundle, error) {
	now := b.now()
	stamp := fmt.Sprintf("%d", now.Unix())

	user := User{
		ID:          uuid.NewString(),
		DiscordID:   "test_discord_" + stamp,
		Username:    "Test User",
		AvatarURL:   "https://example.com/avatar.png",
		CreatedAt:   now,
		UpdatedAt:   now,
		LastLoginAt: now,
	}
	if err := store.UpsertUser(ctx, user); err != nil {
		return nil, fmt.Errorf("%w: user: %v", errs.ErrSeedFailed, err)
	}

	session := Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Token:     "test_session_" + stamp,
		ExpiresAt: now.Add(sessionTTL),
		CreatedAt: now,
	}
	if err := store.UpsertSession(ctx, session); err != nil {
		return nil, fmt.Errorf("%w: session: %v", errs.ErrSeedFailed, err)
	}

	app := ClientApp{
		ID:           uuid.NewString(),
		ClientID:     "test_client_" + stamp,
		Name:         "Test Client",
		SecretHash:   hashSecret(plainSecret),
		RedirectURIs: []string{defaultRedirectURI},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := store.UpsertClientApp(ctx, app); err != nil {
		return nil, fmt.Errorf("%w: client app: %v", errs.ErrSeedFailed, err)
	}

	log.Info().
		Str("user_id", user.ID).
		Str("session_token", session.Token).
		Str("client_id", app.ClientID).
		Msg("fixture data created")

	return &Bundle{
		UserID:       user.ID,
		SessionToken: session.Token,
		ClientID:     app.ClientID,
		ClientSecret: plainSecret,
		RedirectURI:  defaultRedirectURI,
	}, nil
}

func hashSecret(plain string) string {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcryptCost)
	if err != nil {
		log.Warn().Err(err).Msg("bcrypt failed, using precomputed fallback hash")
		return fallbackSecretHash
	}
	return string(hash)
}

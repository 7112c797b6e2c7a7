package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"ai-collection/server/internal/config"
	"ai-collection/server/internal/interfaces"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrUnauthorizedDomain = errors.New("this domain is not authorized for sign-in")
	ErrNoSecret           = errors.New("auth jwt_secret is not configured")
)

type account struct {
	user         interfaces.User
	passwordHash []byte
}

type claims struct {
	jwt.StandardClaims
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Provider signs configured accounts in with bcrypt passwords and issues
// HS256 bearer tokens. Signed-out tokens are revoked until they expire.
type Provider struct {
	secret         []byte
	ttl            time.Duration
	allowedDomains []string
	accounts       map[string]account // by lowercase email
	now            func() time.Time

	mu        sync.Mutex
	revoked   map[string]time.Time // token ID -> expiry
	observers map[int]func(interfaces.IdentityChange)
	nextID    int
}

// NewProvider creates a provider for the configured accounts
func NewProvider(cfg config.AuthConfig) (*Provider, error) {
	if cfg.JWTSecret == "" {
		return nil, ErrNoSecret
	}

	accounts := make(map[string]account, len(cfg.Users))
	for _, u := range cfg.Users {
		if u.ID == "" || u.Email == "" || u.PasswordHash == "" {
			return nil, fmt.Errorf("user %q needs id, email and password_hash", u.Email)
		}
		accounts[strings.ToLower(u.Email)] = account{
			user:         interfaces.User{ID: u.ID, Email: u.Email, Name: u.Name},
			passwordHash: []byte(u.PasswordHash),
		}
	}

	domains := make([]string, 0, len(cfg.AllowedDomains))
	for _, d := range cfg.AllowedDomains {
		domains = append(domains, strings.ToLower(strings.TrimPrefix(d, "@")))
	}

	return &Provider{
		secret:         []byte(cfg.JWTSecret),
		ttl:            cfg.TokenTTL,
		allowedDomains: domains,
		accounts:       accounts,
		now:            time.Now,
		revoked:        make(map[string]time.Time),
		observers:      make(map[int]func(interfaces.IdentityChange)),
	}, nil
}

// SignIn checks the credentials and returns a signed session token
func (p *Provider) SignIn(ctx context.Context, creds interfaces.Credentials) (*interfaces.Session, error) {
	email := strings.ToLower(strings.TrimSpace(creds.Email))
	if !p.domainAllowed(email) {
		return nil, ErrUnauthorizedDomain
	}

	acct, ok := p.accounts[email]
	if !ok {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(acct.passwordHash, []byte(creds.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := p.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		StandardClaims: jwt.StandardClaims{
			Id:        uuid.NewString(),
			Subject:   acct.user.ID,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(p.ttl).Unix(),
		},
		Email: acct.user.Email,
		Name:  acct.user.Name,
	})
	signed, err := token.SignedString(p.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	user := acct.user
	log.WithField("user", user.ID).Info("user signed in")
	p.notify(interfaces.IdentityChange{UserID: user.ID, User: &user})

	return &interfaces.Session{Token: signed, User: &user}, nil
}

// SignOut revokes the token; observers see the user as absent
func (p *Provider) SignOut(ctx context.Context, token string) error {
	c, err := p.parse(token)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.revoked[c.Id] = time.Unix(c.ExpiresAt, 0)
	p.pruneLocked()
	p.mu.Unlock()

	log.WithField("user", c.Subject).Info("user signed out")
	p.notify(interfaces.IdentityChange{UserID: c.Subject})
	return nil
}

// Verify returns the user a valid, unrevoked token belongs to
func (p *Provider) Verify(token string) (*interfaces.User, error) {
	c, err := p.parse(token)
	if err != nil {
		return nil, err
	}
	return &interfaces.User{ID: c.Subject, Email: c.Email, Name: c.Name}, nil
}

// Observe registers fn for sign-in and sign-out events
func (p *Provider) Observe(fn func(interfaces.IdentityChange)) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.observers[id] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.observers, id)
		p.mu.Unlock()
	}
}

func (p *Provider) parse(token string) (*claims, error) {
	var c claims
	parser := &jwt.Parser{ValidMethods: []string{jwt.SigningMethodHS256.Alg()}, SkipClaimsValidation: true}
	parsed, err := parser.ParseWithClaims(token, &c, func(*jwt.Token) (interface{}, error) {
		return p.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if c.Subject == "" || p.now().Unix() >= c.ExpiresAt {
		return nil, ErrInvalidToken
	}

	p.mu.Lock()
	_, revoked := p.revoked[c.Id]
	p.mu.Unlock()
	if revoked {
		return nil, ErrInvalidToken
	}
	return &c, nil
}

func (p *Provider) domainAllowed(email string) bool {
	if len(p.allowedDomains) == 0 {
		return true
	}
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return false
	}
	domain := email[at+1:]
	for _, d := range p.allowedDomains {
		if domain == d {
			return true
		}
	}
	return false
}

func (p *Provider) notify(change interfaces.IdentityChange) {
	p.mu.Lock()
	fns := make([]func(interfaces.IdentityChange), 0, len(p.observers))
	for _, fn := range p.observers {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn(change)
	}
}

func (p *Provider) pruneLocked() {
	now := p.now()
	for id, exp := range p.revoked {
		if now.After(exp) {
			delete(p.revoked, id)
		}
	}
}

// HashPassword returns a bcrypt hash suitable for password_hash
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

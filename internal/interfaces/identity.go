package interfaces

import "context"

// User is an authenticated identity
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Credentials are presented at sign-in
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Session is the result of a successful sign-in
type Session struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// IdentityChange is delivered to observers; User is nil after sign-out
type IdentityChange struct {
	UserID string
	User   *User
}

// IdentityProvider defines sign-in, sign-out and identity observation
type IdentityProvider interface {
	// SignIn authenticates and opens a session
	SignIn(ctx context.Context, creds Credentials) (*Session, error)

	// SignOut closes the session identified by token
	SignOut(ctx context.Context, token string) error

	// Observe registers fn for every identity change and returns an unsubscribe func
	Observe(fn func(IdentityChange)) func()
}

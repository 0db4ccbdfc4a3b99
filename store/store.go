package store

import "context"

// Credentials is the persisted triple. UserJSON holds the serialized
// profile exactly as the backend returned it.
type Credentials struct {
	Token        string
	RefreshToken string
	UserJSON     string
}

// Complete reports whether all three fields are present. The guard treats
// anything less as no session at all.
func (c Credentials) Complete() bool {
	return c.Token != "" && c.RefreshToken != "" && c.UserJSON != ""
}

// CredentialStore is the persistence boundary injected into both the
// coordinator and the guard. Implementations must make Clear wipe all
// three fields atomically with respect to Load — a reader never observes
// one field cleared and another present.
type CredentialStore interface {
	Load(ctx context.Context) (Credentials, error)
	Save(ctx context.Context, creds Credentials) error
	Clear(ctx context.Context) error
}

package store

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable is an exported constant or variable used by the session guard.
var ErrRedisUnavailable = errors.New("redis unavailable")

// RedisConfig names the keys and lifetime of the persisted triple.
type RedisConfig struct {
	Prefix          string
	TokenKey        string
	RefreshTokenKey string
	UserKey         string
	// TTL bounds how long an idle credential set survives. Zero means no
	// expiry; the terminal failure path is then the only wipe.
	TTL time.Duration
}

// Redis is a CredentialStore backed by a Redis hash. BFF deployments use
// it to keep the browser cookie-only while the guard process holds the
// actual credentials.
type Redis struct {
	client *redis.Client
	cfg    RedisConfig
}

// NewRedis creates a Redis-backed store. Empty key names fall back to the
// conventional auth_token / refresh_token / user_data triple.
func NewRedis(client *redis.Client, cfg RedisConfig) (*Redis, error) {
	if client == nil {
		return nil, errors.New("nil redis client")
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "goguard:credentials:"
	}
	if cfg.TokenKey == "" {
		cfg.TokenKey = "auth_token"
	}
	if cfg.RefreshTokenKey == "" {
		cfg.RefreshTokenKey = "refresh_token"
	}
	if cfg.UserKey == "" {
		cfg.UserKey = "user_data"
	}
	return &Redis{client: client, cfg: cfg}, nil
}

func (r *Redis) hashKey() string {
	return r.cfg.Prefix + "fields"
}

// Load reads the triple in one round-trip. Missing fields read as empty
// strings, which the Complete check downgrades to "no session".
func (r *Redis) Load(ctx context.Context) (Credentials, error) {
	values, err := r.client.HMGet(ctx, r.hashKey(), r.cfg.TokenKey, r.cfg.RefreshTokenKey, r.cfg.UserKey).Result()
	if err != nil {
		return Credentials{}, ErrRedisUnavailable
	}

	var creds Credentials
	if s, ok := values[0].(string); ok {
		creds.Token = s
	}
	if s, ok := values[1].(string); ok {
		creds.RefreshToken = s
	}
	if s, ok := values[2].(string); ok {
		creds.UserJSON = s
	}
	return creds, nil
}

// Save writes all three fields in one hash so a concurrent Load never sees
// a torn triple.
func (r *Redis) Save(ctx context.Context, creds Credentials) error {
	key := r.hashKey()
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, key,
		r.cfg.TokenKey, creds.Token,
		r.cfg.RefreshTokenKey, creds.RefreshToken,
		r.cfg.UserKey, creds.UserJSON,
	)
	if r.cfg.TTL > 0 {
		pipe.Expire(ctx, key, r.cfg.TTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return ErrRedisUnavailable
	}
	return nil
}

// Clear deletes the hash, wiping all three fields together.
func (r *Redis) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.hashKey()).Err(); err != nil {
		return ErrRedisUnavailable
	}
	return nil
}

// Package directory is the client side of the external user-directory
// service. It supplies display metadata (email, name, avatar) for a user id
// and is never consulted for authorization decisions.
package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MMTECHNOLOGIES228/GESTIONSPROJET-sub001/internal/db"
)

var ErrUnknownUser = errors.New("user not found in directory")

type Profile struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

type Directory interface {
	Lookup(ctx context.Context, userID string) (*Profile, error)
	// LookupByEmail supports invite-by-email flows.
	LookupByEmail(ctx context.Context, email string) (*Profile, error)
}

// ============================================
// Stub Directory
// ============================================

// stubDirectory fabricates deterministic profiles until the real directory
// integration lands. Kept behind the Directory interface so swapping it in is
// a wiring change only.
type stubDirectory struct{}

func NewStubDirectory() Directory {
	return &stubDirectory{}
}

func (d *stubDirectory) Lookup(ctx context.Context, userID string) (*Profile, error) {
	if userID == "" {
		return nil, ErrUnknownUser
	}
	short := userID
	if len(short) > 8 {
		short = short[:8]
	}
	return &Profile{
		UserID: userID,
		Email:  fmt.Sprintf("user-%s@example.com", short),
		Name:   fmt.Sprintf("User %s", short),
		Avatar: fmt.Sprintf("https://avatars.example.com/%s.png", short),
	}, nil
}

func (d *stubDirectory) LookupByEmail(ctx context.Context, email string) (*Profile, error) {
	// Mirrors Lookup: the stub encodes the user id in the fabricated address.
	addr := strings.ToLower(strings.TrimSpace(email))
	if !strings.HasPrefix(addr, "user-") || !strings.HasSuffix(addr, "@example.com") {
		return nil, ErrUnknownUser
	}
	userID := strings.TrimSuffix(strings.TrimPrefix(addr, "user-"), "@example.com")
	if userID == "" {
		return nil, ErrUnknownUser
	}
	return d.Lookup(ctx, userID)
}

// ============================================
// Cached Directory
// ============================================

const cacheTTL = 15 * time.Minute

// cachedDirectory adds a redis read-through cache in front of another
// Directory. Cache failures fall through to the inner lookup.
type cachedDirectory struct {
	inner Directory
	cache *db.RedisDB
}

func NewCachedDirectory(inner Directory, cache *db.RedisDB) Directory {
	return &cachedDirectory{inner: inner, cache: cache}
}

func (d *cachedDirectory) Lookup(ctx context.Context, userID string) (*Profile, error) {
	key := "directory:user:" + userID
	var cached Profile
	if err := d.cache.GetJSON(ctx, key, &cached); err == nil {
		return &cached, nil
	}

	// Misses and cache errors both fall through to the inner lookup.
	profile, err := d.inner.Lookup(ctx, userID)
	if err != nil {
		return nil, err
	}
	_ = d.cache.SetJSON(ctx, key, profile, cacheTTL)
	return profile, nil
}

func (d *cachedDirectory) LookupByEmail(ctx context.Context, email string) (*Profile, error) {
	return d.inner.LookupByEmail(ctx, email)
}

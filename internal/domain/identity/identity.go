// Package identity resolves bearer tokens to the acting user.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/okian/tally/internal/adapters/repository"
	"github.com/okian/tally/internal/domain/model"
	"github.com/okian/tally/pkg/logger"
	"github.com/okian/tally/pkg/metrics"
)

// Identity is the acting user. A Degraded identity was rebuilt from token
// claims because the profile store could not be read; it is never written
// back.
type Identity struct {
	UserID          string     `json:"id"`
	Name            string     `json:"name"`
	Role            model.Role `json:"role"`
	AssignedEventID string     `json:"assignedEventId,omitempty"`
	Degraded        bool       `json:"degraded"`
}

// ProfileGetter looks up stored profiles.
type ProfileGetter interface {
	GetProfile(ctx context.Context, id string) (model.User, error)
}

// Resolver verifies tokens and loads the matching profile.
type Resolver struct {
	secret   []byte
	profiles ProfileGetter
	now      func() time.Time
	log      logger.Logger
}

// NewResolver creates a resolver verifying HS256 tokens signed with secret.
func NewResolver(secret string, profiles ProfileGetter, opts ...Option) *Resolver {
	r := &Resolver{
		secret:   []byte(secret),
		profiles: profiles,
		now:      time.Now,
		log:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the identity behind token. A "Bearer " prefix is accepted.
// A token whose profile no longer exists is rejected.
func (r *Resolver) Resolve(ctx context.Context, token string) (Identity, error) {
	claims, err := r.verify(strings.TrimSpace(strings.TrimPrefix(token, "Bearer ")))
	if err != nil {
		return Identity{}, err
	}

	u, err := r.profiles.GetProfile(ctx, claims.Subject)
	if errors.Is(err, repository.ErrNotFound) {
		return Identity{}, fmt.Errorf("%w: no profile for %q", ErrUnauthenticated, claims.Subject)
	}
	if err != nil {
		metrics.RecordIdentityFallback()
		r.log.Warn(ctx, "using degraded identity",
			logger.String("user", claims.Subject),
			logger.Error(fmt.Errorf("%w: %w", ErrProfileUnavailable, err)),
		)
		return Identity{
			UserID:          claims.Subject,
			Name:            claims.Name,
			Role:            claims.Role,
			AssignedEventID: claims.Event,
			Degraded:        true,
		}, nil
	}
	return Identity{UserID: u.ID, Name: u.Name, Role: u.Role, AssignedEventID: u.AssignedEventID}, nil
}

func (r *Resolver) verify(token string) (*Claims, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return r.secret, nil
	}, jwt.WithTimeFunc(r.now), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return nil, ErrUnauthenticated
	}
	return claims, nil
}

// AuthorizeSubmission allows judges to score only their assigned event.
func AuthorizeSubmission(id Identity, eventID string) error {
	if id.Role != model.RoleJudge {
		return fmt.Errorf("%w: role %q cannot submit scores", ErrForbidden, id.Role)
	}
	if id.AssignedEventID != eventID {
		return fmt.Errorf("%w: judge %q is not assigned to event %q", ErrForbidden, id.UserID, eventID)
	}
	return nil
}

// AuthorizeAdmin allows super admins, and event admins for their own event.
// An empty eventID means a region-wide action.
func AuthorizeAdmin(id Identity, eventID string) error {
	switch {
	case id.Role == model.RoleSuperAdmin:
		return nil
	case id.Role == model.RoleEventAdmin && eventID != "" && id.AssignedEventID == eventID:
		return nil
	}
	return fmt.Errorf("%w: %q cannot administer %q", ErrForbidden, id.UserID, eventID)
}

// Issuer signs tokens for users.
type Issuer struct {
	secret []byte
	now    func() time.Time
}

// NewIssuer creates an issuer signing with secret.
func NewIssuer(secret string) *Issuer {
	return &Issuer{secret: []byte(secret), now: time.Now}
}

// Issue signs a token for u valid for ttl.
func (i *Issuer) Issue(u model.User, ttl time.Duration) (string, error) {
	if u.ID == "" {
		return "", errors.New("identity.Issue: user without id")
	}
	now := i.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Name:  u.Name,
		Role:  u.Role,
		Event: u.AssignedEventID,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("identity.Issue: %w", err)
	}
	return signed, nil
}

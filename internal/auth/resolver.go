package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hafbjorn109/wiperino/internal/adapter/metrics"
	"github.com/hafbjorn109/wiperino/internal/domain"
	"golang.org/x/sync/singleflight"
)

const tokenLookupTimeout = 5 * time.Second

// Resolver maps handshake credentials to identities and poll roles.
type Resolver struct {
	verifier *Verifier
	accounts domain.AccountDirectory
	store    domain.EphemeralStore
	metrics  *metrics.PollMetrics
	lookups  singleflight.Group
}

// NewResolver creates a Resolver. accounts may be nil, in which case the
// display name is taken from the credential's username claim.
func NewResolver(verifier *Verifier, accounts domain.AccountDirectory, store domain.EphemeralStore, m *metrics.PollMetrics) *Resolver {
	return &Resolver{
		verifier: verifier,
		accounts: accounts,
		store:    store,
		metrics:  m,
	}
}

// ResolveAccount never rejects: any credential problem yields Anonymous and
// the room handler decides what anonymous connections may do.
func (r *Resolver) ResolveAccount(ctx context.Context, raw string) domain.Identity {
	if raw == "" {
		return domain.Anonymous
	}

	claims, err := r.verifier.Verify(raw)
	if err != nil {
		slog.DebugContext(ctx, "Bearer credential rejected", "error", err)
		return domain.Anonymous
	}
	id := int64(claims.UserID)

	if r.accounts == nil {
		if claims.Username == "" {
			return domain.Anonymous
		}
		return domain.Identity{AccountID: id, DisplayName: claims.Username}
	}

	account, err := r.accounts.GetAccount(ctx, id)
	if err != nil {
		if !errors.Is(err, domain.ErrAccountNotFound) {
			slog.WarnContext(ctx, "Account lookup failed", "account_id", id, "error", err)
		}
		return domain.Anonymous
	}
	return domain.Identity{AccountID: account.ID, DisplayName: account.Username}
}

// ResolvePollToken returns the session a room-access token belongs to and
// the role it grants. Connections on an overlay path always get the
// overlay role. Returns domain.ErrTokenNotFound for unmapped tokens.
func (r *Resolver) ResolvePollToken(ctx context.Context, token string, overlay bool) (string, domain.Role, error) {
	if token == "" {
		return "", "", domain.ErrTokenNotFound
	}

	// The coalesced lookup is detached from any one caller; each caller
	// waits on its own ctx.
	lookup := r.lookups.DoChan(token, func() (any, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), tokenLookupTimeout)
		defer cancel()
		return r.store.Get(lctx, domain.TokenKey(token))
	})

	var result singleflight.Result
	select {
	case result = <-lookup:
	case <-ctx.Done():
		return "", "", fmt.Errorf("failed to resolve poll token: %w", ctx.Err())
	}

	err := result.Err
	switch {
	case errors.Is(err, domain.ErrKeyNotFound):
		r.metrics.TokenLookups.WithLabelValues("miss").Inc()
		return "", "", domain.ErrTokenNotFound
	case err != nil:
		r.metrics.TokenLookups.WithLabelValues("error").Inc()
		return "", "", fmt.Errorf("failed to resolve poll token: %w", err)
	}
	r.metrics.TokenLookups.WithLabelValues("hit").Inc()

	return result.Val.(string), RoleForToken(token, overlay), nil
}

// RoleForToken derives the poll role from the token text.
func RoleForToken(token string, overlay bool) domain.Role {
	switch {
	case overlay:
		return domain.RoleOverlay
	case strings.Contains(token, domain.ModeratorMarker):
		return domain.RoleModerator
	default:
		return domain.RoleViewer
	}
}

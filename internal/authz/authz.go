// Package authz decides whether a principal's role may perform a route's action.
package authz

import (
	"log/slog"
	"net/http"
	"slices"
	"strings"

	dErrors "smartgn/pkg/domain-errors"
	"smartgn/pkg/platform/httputil"
	"smartgn/pkg/requestcontext"
)

// Role is the role tag carried in session tokens.
type Role string

const (
	RoleUser           Role = "USER"
	RoleVillageOfficer Role = "VILLAGE_OFFICER"
	RoleAdmin          Role = "ADMIN"
)

// IsValid reports whether r is one of the known roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleVillageOfficer, RoleAdmin:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }

// RoleSet is the set of roles a route accepts. The empty set accepts any
// authenticated principal.
type RoleSet []Role

// Roles builds a RoleSet.
func Roles(roles ...Role) RoleSet {
	return RoleSet(roles)
}

func (s RoleSet) String() string {
	if len(s) == 0 {
		return "*"
	}
	parts := make([]string, len(s))
	for i, r := range s {
		parts[i] = string(r)
	}
	return strings.Join(parts, ",")
}

// Authorize reports whether role satisfies required.
func Authorize(required RoleSet, role Role) bool {
	return len(required) == 0 || slices.Contains(required, role)
}

// RequireRoles rejects requests whose principal role is not in required.
// It must run after the auth middleware.
func RequireRoles(required RoleSet, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			principal, ok := requestcontext.PrincipalFrom(ctx)
			if !ok {
				logger.ErrorContext(ctx, "role gate reached without a principal",
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
				return
			}

			if !Authorize(required, Role(principal.Role)) {
				logger.WarnContext(ctx, "role not permitted",
					"request_id", requestcontext.RequestID(ctx),
					"subject", principal.Subject,
					"role", principal.Role,
					"required", required.String(),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "insufficient role for this action"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

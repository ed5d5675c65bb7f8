package auth

import (
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/FACorreiaa/fabrico-auth/internal/api"
)

// Access is what a request needs to reach a path.
type Access int

const (
	PermitAll Access = iota
	Authenticated
)

func (a Access) String() string {
	if a == PermitAll {
		return "permitAll"
	}
	return "authenticated"
}

// Rule binds a path pattern to an access level.
//
// Patterns are matched segment by segment: "*" matches exactly one segment and
// a trailing "/**" matches the prefix itself and everything below it. The
// pattern "*" on its own matches every path.
type Rule struct {
	Pattern string
	Access  Access
}

// Matches reports whether p falls under the rule's pattern.
func (r Rule) Matches(p string) bool {
	if r.Pattern == "*" {
		return true
	}
	pat := strings.Split(r.Pattern, "/")
	segs := strings.Split(p, "/")

	if pat[len(pat)-1] == "**" {
		pat = pat[:len(pat)-1]
		if len(segs) < len(pat) {
			return false
		}
		segs = segs[:len(pat)]
	} else if len(segs) != len(pat) {
		return false
	}

	for i := range pat {
		if ok, _ := path.Match(pat[i], segs[i]); !ok {
			return false
		}
	}
	return true
}

// Policy is an ordered list of rules. The first matching rule decides; paths
// no rule matches get Default.
type Policy struct {
	Rules   []Rule
	Default Access
}

// DefaultPolicy opens the auth, catalogue and public areas and protects
// everything else.
func DefaultPolicy() Policy {
	return Policy{
		Rules: []Rule{
			{Pattern: "/api/auth/**", Access: PermitAll},
			{Pattern: "/api/products/**", Access: PermitAll},
			{Pattern: "/api/public/**", Access: PermitAll},
		},
		Default: Authenticated,
	}
}

// Required returns the access level for request path p.
func (pol Policy) Required(p string) Access {
	p = path.Clean("/" + p)
	for _, rule := range pol.Rules {
		if rule.Matches(p) {
			return rule.Access
		}
	}
	return pol.Default
}

// Authorize admits requests to protected paths only when Authenticate
// attached a principal. Others get 401.
func Authorize(logger *slog.Logger, policy Policy) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if policy.Required(r.URL.Path) == PermitAll {
				next.ServeHTTP(w, r)
				return
			}
			if _, ok := PrincipalFromContext(r.Context()); !ok {
				logger.InfoContext(r.Context(), "Unauthenticated request to protected path",
					slog.String("middleware", "Authorize"),
					slog.String("path", r.URL.Path))
				api.ErrorResponse(w, r, http.StatusUnauthorized, "Unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

package middleware

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	authgate "github.com/harperbeck/authgate"
)

// PathClass is the gate's classification of a request path.
type PathClass uint8

const (
	PathUnmatched PathClass = iota
	PathPublic
	PathProtected
	PathAdminOnly
)

// Decision is what the gate does with a request.
type Decision uint8

const (
	// Forward passes the request through, with claims in context when a
	// valid session accompanied it.
	Forward Decision = iota
	// RedirectToLogin sends an unauthenticated request on a protected
	// path to the login page, carrying the original path as return-to.
	RedirectToLogin
	// RedirectToDashboard sends an authenticated request on a public
	// auth page (login, register) to the dashboard.
	RedirectToDashboard
	// Deny answers 401/403 directly, for API paths where a redirect
	// would be wrong.
	Deny
)

// Classifier maps request paths to classes and holds the gate's redirect
// targets. The zero value forwards everything; set the path lists to
// enforce.
type Classifier struct {
	// PublicPaths match exactly, PublicPrefixes by prefix. Public paths
	// are the auth pages themselves: login, register, reset, verify.
	PublicPaths    []string
	PublicPrefixes []string

	// AdminPrefixes are paths requiring the admin role on top of a valid
	// session.
	AdminPrefixes []string

	// ProtectedPrefixes require a valid session. A path matching none of
	// the lists is unmatched and forwarded untouched.
	ProtectedPrefixes []string

	// APIPrefixes answer Deny instead of a redirect.
	APIPrefixes []string

	LoginPath     string
	DashboardPath string

	// ReturnToParam is the query parameter carrying the original path on
	// a login redirect. Defaults to "from".
	ReturnToParam string
}

func (c Classifier) Classify(path string) PathClass {
	for _, p := range c.PublicPaths {
		if path == p {
			return PathPublic
		}
	}
	for _, p := range c.PublicPrefixes {
		if strings.HasPrefix(path, p) {
			return PathPublic
		}
	}
	for _, p := range c.AdminPrefixes {
		if strings.HasPrefix(path, p) {
			return PathAdminOnly
		}
	}
	for _, p := range c.ProtectedPrefixes {
		if strings.HasPrefix(path, p) {
			return PathProtected
		}
	}
	return PathUnmatched
}

func (c Classifier) isAPI(path string) bool {
	for _, p := range c.APIPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// Decide is the gate's decision table, pure so it can be tested without
// HTTP plumbing. authenticated reports a valid session; admin reports
// the admin role inside it.
//
//	class       session  role    decision
//	public      no       -       Forward
//	public      yes      -       RedirectToDashboard
//	protected   no       -       RedirectToLogin
//	protected   yes      any     Forward
//	admin       no       -       RedirectToLogin
//	admin       yes      !admin  RedirectToDashboard
//	admin       yes      admin   Forward
//	unmatched   -        -       Forward
func Decide(class PathClass, authenticated, admin bool) Decision {
	switch class {
	case PathPublic:
		if authenticated {
			return RedirectToDashboard
		}
		return Forward
	case PathProtected:
		if authenticated {
			return Forward
		}
		return RedirectToLogin
	case PathAdminOnly:
		if !authenticated {
			return RedirectToLogin
		}
		if !admin {
			return RedirectToDashboard
		}
		return Forward
	default:
		return Forward
	}
}

type claimsContextKey struct{}

// ClaimsFromContext returns the session claims the gate stored for a
// forwarded authenticated request.
func ClaimsFromContext(ctx context.Context) (*authgate.SessionClaims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(*authgate.SessionClaims)
	return claims, ok
}

// Gate enforces the decision table in front of an http.Handler. The
// session credential is read from the named cookie, falling back to a
// bearer Authorization header. Any validation error, including a
// revocation backend outage, counts as "no session": the gate fails
// closed.
type Gate struct {
	engine     *authgate.Engine
	classifier Classifier
	cookieName string
}

func NewGate(engine *authgate.Engine, classifier Classifier, cookieName string) *Gate {
	if classifier.LoginPath == "" {
		classifier.LoginPath = "/login"
	}
	if classifier.DashboardPath == "" {
		classifier.DashboardPath = "/dashboard"
	}
	if classifier.ReturnToParam == "" {
		classifier.ReturnToParam = "from"
	}
	if cookieName == "" {
		cookieName = "authgate_session"
	}
	return &Gate{engine: engine, classifier: classifier, cookieName: cookieName}
}

func (g *Gate) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		class := g.classifier.Classify(path)
		if class == PathUnmatched {
			next.ServeHTTP(w, r)
			return
		}

		claims := g.validate(r)
		authenticated := claims != nil
		admin := authenticated && claims.Role == string(authgate.RoleAdmin)

		metrics := g.engine.Metrics()

		switch Decide(class, authenticated, admin) {
		case Forward:
			metrics.Inc(authgate.MetricGateForward)
			if authenticated {
				ctx := context.WithValue(r.Context(), claimsContextKey{}, claims)
				r = r.WithContext(ctx)
			}
			next.ServeHTTP(w, r)

		case RedirectToLogin:
			if g.classifier.isAPI(path) {
				metrics.Inc(authgate.MetricGateDeny)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			metrics.Inc(authgate.MetricGateRedirect)
			target := g.classifier.LoginPath + "?" + url.Values{
				g.classifier.ReturnToParam: {path},
			}.Encode()
			http.Redirect(w, r, target, http.StatusFound)

		case RedirectToDashboard:
			if g.classifier.isAPI(path) {
				metrics.Inc(authgate.MetricGateDeny)
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			metrics.Inc(authgate.MetricGateRedirect)
			http.Redirect(w, r, g.classifier.DashboardPath, http.StatusFound)

		case Deny:
			metrics.Inc(authgate.MetricGateDeny)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
		}
	})
}

// validate extracts and checks the credential. Every failure mode
// returns nil: a missing cookie, a tampered token, an expired session,
// and a revocation backend outage are indistinguishable to the request.
func (g *Gate) validate(r *http.Request) *authgate.SessionClaims {
	raw := g.credential(r)
	if raw == "" {
		return nil
	}
	claims, err := g.engine.ValidateSession(r.Context(), raw)
	if err != nil {
		return nil
	}
	return claims
}

func (g *Gate) credential(r *http.Request) string {
	if c, err := r.Cookie(g.cookieName); err == nil && c.Value != "" {
		return c.Value
	}
	const bearer = "Bearer "
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, bearer) {
		return h[len(bearer):]
	}
	return ""
}

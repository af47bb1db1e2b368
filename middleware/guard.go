package middleware

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kabarportal/portal/models"
	"github.com/kabarportal/portal/utils"
)

const (
	// ContextUsernameKey stores the authenticated admin username inside Gin context.
	ContextUsernameKey = "username"
	// ContextRoleKey stores the authenticated admin role inside Gin context.
	ContextRoleKey = "role"

	// LoginPath is the admin login page every failed page check is sent to.
	LoginPath = "/admin/login"
)

// Policy is what a matched rule demands of the request.
type Policy int

const (
	// PolicyPublic passes the request through without looking at the session.
	PolicyPublic Policy = iota
	// PolicyAdminPage requires a session and redirects to the login page otherwise.
	PolicyAdminPage
	// PolicyAdminAPI requires a session and answers 401/403 otherwise.
	PolicyAdminAPI
)

// Outcome is the terminal state of a guard decision.
type Outcome int

const (
	OutcomePublicPass Outcome = iota
	OutcomeAuthorized
	OutcomeRedirectToLogin
	OutcomeUnauthorized
	OutcomeForbidden
)

func (o Outcome) String() string {
	switch o {
	case OutcomePublicPass:
		return "public_pass"
	case OutcomeAuthorized:
		return "authorized"
	case OutcomeRedirectToLogin:
		return "redirect_to_login"
	case OutcomeUnauthorized:
		return "unauthorized"
	case OutcomeForbidden:
		return "forbidden"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Matcher reports whether a rule applies to a request path.
type Matcher func(path string) bool

// PathPrefix matches any of the prefixes on a segment boundary, so "/admin"
// matches "/admin" and "/admin/news" but not "/administrator".
func PathPrefix(prefixes ...string) Matcher {
	return func(path string) bool {
		for _, p := range prefixes {
			if path == p || strings.HasPrefix(path, strings.TrimSuffix(p, "/")+"/") {
				return true
			}
		}
		return false
	}
}

// PathExact matches any of the paths exactly.
func PathExact(paths ...string) Matcher {
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		set[p] = struct{}{}
	}
	return func(path string) bool {
		_, ok := set[path]
		return ok
	}
}

// Rule binds a matcher to a policy. Rules are evaluated top-down and the first match wins.
type Rule struct {
	Name   string
	Match  Matcher
	Policy Policy
}

// DefaultRules is the portal's access table.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name: "public-api",
			Match: PathPrefix(
				"/api/news",
				"/api/events",
				"/api/categories",
				"/api/team",
				"/api/advertisements",
				"/api/footer",
				"/api/track-article-view",
				"/api/access-log",
				"/api/auth/login",
				"/api/auth/csrf",
				"/api/auth/logout",
				"/api/health",
			),
			Policy: PolicyPublic,
		},
		{Name: "public-page", Match: PathExact(LoginPath), Policy: PolicyPublic},
		{Name: "admin-api", Match: PathPrefix("/api/admin"), Policy: PolicyAdminAPI},
		{Name: "admin-page", Match: PathPrefix("/admin"), Policy: PolicyAdminPage},
	}
}

// Decision is the result of evaluating the access table for one request.
type Decision struct {
	Outcome Outcome
	Rule    string
	// RedirectTarget is set for OutcomeRedirectToLogin.
	RedirectTarget string
	// Session is set for OutcomeAuthorized.
	Session *utils.Session
}

// SessionVerifier validates a session token. utils.SessionManager satisfies it.
type SessionVerifier interface {
	Verify(token string) (*utils.Session, error)
}

// AccessGuard gates admin pages and APIs behind a valid session with an authorized role.
type AccessGuard struct {
	rules    []Rule
	verifier SessionVerifier
	roles    map[string]struct{}
}

// NewAccessGuard builds a guard over rules; nil rules means DefaultRules.
func NewAccessGuard(verifier SessionVerifier, rules []Rule) *AccessGuard {
	if rules == nil {
		rules = DefaultRules()
	}
	return &AccessGuard{
		rules:    rules,
		verifier: verifier,
		roles: map[string]struct{}{
			models.RoleAdmin:      {},
			models.RoleSuperAdmin: {},
		},
	}
}

// Decide classifies path and checks token when the matched rule requires a session.
// Paths matching no rule pass.
func (g *AccessGuard) Decide(path, token string) Decision {
	for _, r := range g.rules {
		if !r.Match(path) {
			continue
		}
		if r.Policy == PolicyPublic {
			return Decision{Outcome: OutcomePublicPass, Rule: r.Name}
		}
		return g.checkAdmin(r, path, token)
	}
	return Decision{Outcome: OutcomePublicPass, Rule: "default"}
}

func (g *AccessGuard) checkAdmin(r Rule, path, token string) Decision {
	session, err := g.verify(token)
	if err != nil || session == nil {
		if r.Policy == PolicyAdminPage {
			return Decision{Outcome: OutcomeRedirectToLogin, Rule: r.Name, RedirectTarget: LoginRedirect(path)}
		}
		return Decision{Outcome: OutcomeUnauthorized, Rule: r.Name}
	}
	if _, ok := g.roles[session.Role]; !ok {
		if r.Policy == PolicyAdminPage {
			return Decision{Outcome: OutcomeRedirectToLogin, Rule: r.Name, RedirectTarget: LoginRedirect(path)}
		}
		return Decision{Outcome: OutcomeForbidden, Rule: r.Name}
	}
	return Decision{Outcome: OutcomeAuthorized, Rule: r.Name, Session: session}
}

// verify fails closed: a missing token, a verifier error or a verifier panic are all "no session".
func (g *AccessGuard) verify(token string) (s *utils.Session, err error) {
	if token == "" {
		return nil, utils.ErrInvalidToken
	}
	if g.verifier == nil {
		return nil, fmt.Errorf("no session verifier configured")
	}
	defer func() {
		if r := recover(); r != nil {
			s, err = nil, fmt.Errorf("session verifier panic: %v", r)
		}
	}()
	return g.verifier.Verify(token)
}

// LoginRedirect builds the login URL carrying path as the return target.
func LoginRedirect(path string) string {
	return LoginPath + "?" + url.Values{"redirect": {path}}.Encode()
}

// Middleware applies the guard to every request. The session token is read
// from cookieName, or from an "Authorization: Bearer" header.
func (g *AccessGuard) Middleware(cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		d := g.Decide(path, SessionToken(c, cookieName))

		switch d.Outcome {
		case OutcomePublicPass:
			c.Next()
		case OutcomeAuthorized:
			c.Set(ContextUsernameKey, d.Session.Username)
			c.Set(ContextRoleKey, d.Session.Role)
			c.Next()
		case OutcomeRedirectToLogin:
			utils.Logger.Debug("admin page denied", zap.String("path", path), zap.String("rule", d.Rule))
			c.Redirect(http.StatusFound, d.RedirectTarget)
			c.Abort()
		case OutcomeForbidden:
			utils.Logger.Info("admin api forbidden", zap.String("path", path), zap.String("rule", d.Rule))
			utils.Error(c, http.StatusForbidden, "Insufficient permissions")
			c.Abort()
		default:
			utils.Logger.Debug("admin api unauthenticated", zap.String("path", path), zap.String("rule", d.Rule))
			utils.Error(c, http.StatusUnauthorized, "Authentication required")
			c.Abort()
		}
	}
}

// SessionToken returns the session cookie value, falling back to a bearer token.
func SessionToken(c *gin.Context, cookieName string) string {
	if v, err := c.Cookie(cookieName); err == nil && v != "" {
		return v
	}
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// CurrentAdmin returns the username and role the guard placed on the context.
func CurrentAdmin(c *gin.Context) (username, role string, ok bool) {
	username = c.GetString(ContextUsernameKey)
	role = c.GetString(ContextRoleKey)
	return username, role, username != ""
}

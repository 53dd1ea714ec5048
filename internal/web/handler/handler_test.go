package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"cohort/internal/identity"
	"cohort/internal/platform/middleware"
	"cohort/internal/web/approle"
	"cohort/internal/web/participant"
	"cohort/internal/web/policy"
	"cohort/internal/web/rp"
	"cohort/internal/web/session"
)

// WebHandlerSuite covers the session endpoints and the policy-guarded routes.
// The OIDC round-trip against a live provider is exercised by the IdP handler
// tests and the rp client tests; here sessions are issued directly.
type WebHandlerSuite struct {
	suite.Suite
	router   chi.Router
	sessions *session.Manager
	roles    *approle.Resolver
}

func TestWebHandlerSuite(t *testing.T) {
	suite.Run(t, new(WebHandlerSuite))
}

func (s *WebHandlerSuite) SetupTest() {
	log := slog.Default()
	s.sessions = session.NewManager("test-web-secret", "cohort-web", time.Hour, false)
	s.roles = approle.NewResolver(approle.NewInMemoryStore(), log)

	oidcClient := rp.NewClient(rp.Config{
		Authority:   "http://localhost:5001",
		ClientID:    "cohort-web",
		RedirectURL: "http://localhost:5003/auth/callback",
	}, log)
	guard := policy.NewGuard(s.sessions, nil, nil, log)
	participants := participant.NewService(nil, nil, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestContext)
	New(oidcClient, s.sessions, s.roles, participants, guard, nil, nil, log, "http://localhost:5003/").Register(r)
	s.router = r
}

func (s *WebHandlerSuite) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *WebHandlerSuite) cookieFor(principal *identity.Principal) *http.Cookie {
	w := httptest.NewRecorder()
	s.Require().NoError(s.sessions.Issue(w, principal, time.Now()))
	cookies := w.Result().Cookies()
	s.Require().Len(cookies, 1)
	return cookies[0]
}

func (s *WebHandlerSuite) oidcCookie(role identity.AppRole) *http.Cookie {
	p, err := identity.NewOIDCPrincipal("sub-oidc", "tenant-1", "Jo Smith", "jo@example.com")
	s.Require().NoError(err)
	p.AppRole = role
	return s.cookieFor(p)
}

func (s *WebHandlerSuite) jsonBody(w *httptest.ResponseRecorder) map[string]any {
	var body map[string]any
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func (s *WebHandlerSuite) TestAnonymousSignIn() {
	req := httptest.NewRequest(http.MethodPost, "/api/participant/anonymous-signin",
		strings.NewReader(`{"name":"Jo Smith"}`))
	req.Header.Set("Content-Type", "application/json")
	w := s.do(req)
	s.Require().Equal(http.StatusOK, w.Code)

	body := s.jsonBody(w)
	s.NotEmpty(body["participantKey"])
	displayName, _ := body["displayName"].(string)
	s.True(strings.HasPrefix(displayName, "User-"), displayName)
	s.NotContains(w.Body.String(), "Jo Smith", "the submitted name never appears in the response")

	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == session.CookieName {
			cookie = c
		}
	}
	s.Require().NotNil(cookie, "sign-in must establish a session")

	s.Run("session carries the participant role", func() {
		req := httptest.NewRequest(http.MethodGet, "/api/participant/quiz", nil)
		req.AddCookie(cookie)
		w := s.do(req)
		s.Equal(http.StatusOK, w.Code)
		s.Equal(displayName, s.jsonBody(w)["displayName"])
	})
}

func (s *WebHandlerSuite) TestAnonymousSignInRejectsBadInput() {
	s.Run("empty name", func() {
		req := httptest.NewRequest(http.MethodPost, "/api/participant/anonymous-signin",
			strings.NewReader(`{"name":""}`))
		req.Header.Set("Content-Type", "application/json")
		w := s.do(req)
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("malformed body", func() {
		req := httptest.NewRequest(http.MethodPost, "/api/participant/anonymous-signin",
			strings.NewReader(`{`))
		req.Header.Set("Content-Type", "application/json")
		w := s.do(req)
		s.Equal(http.StatusBadRequest, w.Code)
	})
}

func (s *WebHandlerSuite) TestMe() {
	s.Run("unauthenticated", func() {
		w := s.do(httptest.NewRequest(http.MethodGet, "/api/me", nil))
		s.Equal(http.StatusOK, w.Code)
		s.Equal(false, s.jsonBody(w)["isAuthenticated"])
	})

	s.Run("oidc session", func() {
		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		req.AddCookie(s.oidcCookie(identity.RoleHost))
		w := s.do(req)
		body := s.jsonBody(w)
		s.Equal(true, body["isAuthenticated"])
		s.Equal("sub-oidc", body["subject"])
		s.Equal("host", body["appRole"])
	})

	s.Run("roleless oidc session reports a null role", func() {
		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		req.AddCookie(s.oidcCookie(identity.RoleNone))
		w := s.do(req)
		body := s.jsonBody(w)
		s.Equal(true, body["isAuthenticated"])
		s.Contains(body, "appRole")
		s.Nil(body["appRole"])
	})

	s.Run("anonymous session hides the real name", func() {
		p, err := identity.NewAnonymousPrincipal("sub-anon", "Jo Smith", "User-a1b2c3d4e5")
		s.Require().NoError(err)
		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		req.AddCookie(s.cookieFor(p))
		w := s.do(req)
		body := s.jsonBody(w)
		s.Equal(true, body["isAuthenticated"])
		s.Equal("User-a1b2c3d4e5", body["displayName"])
		s.NotContains(w.Body.String(), "Jo Smith")
		s.NotContains(w.Body.String(), identity.ClaimRealName)
	})
}

func (s *WebHandlerSuite) TestSessionLogout() {
	req := httptest.NewRequest(http.MethodPost, "/api/session/logout", nil)
	req.AddCookie(s.oidcCookie(identity.RoleNone))
	w := s.do(req)
	s.Equal(http.StatusNoContent, w.Code)

	cookies := w.Result().Cookies()
	s.Require().Len(cookies, 1)
	s.Equal(-1, cookies[0].MaxAge)
}

func (s *WebHandlerSuite) TestGuardedRoutes() {
	s.Run("api without session gets 401", func() {
		w := s.do(httptest.NewRequest(http.MethodGet, "/api/host/quizzes", nil))
		s.Equal(http.StatusUnauthorized, w.Code)
	})

	s.Run("api with roleless oidc session gets 403", func() {
		req := httptest.NewRequest(http.MethodGet, "/api/host/quizzes", nil)
		req.AddCookie(s.oidcCookie(identity.RoleNone))
		w := s.do(req)
		s.Equal(http.StatusForbidden, w.Code)
	})

	s.Run("api with host session succeeds", func() {
		req := httptest.NewRequest(http.MethodGet, "/api/host/quizzes", nil)
		req.AddCookie(s.oidcCookie(identity.RoleHost))
		w := s.do(req)
		s.Equal(http.StatusOK, w.Code)
	})

	s.Run("browser without session redirects to login", func() {
		w := s.do(httptest.NewRequest(http.MethodGet, "/host", nil))
		s.Equal(http.StatusFound, w.Code)
		s.Equal("/auth/login?returnUrl=%2Fhost", w.Header().Get("Location"))
	})

	s.Run("browser without the role lands on not-authorized", func() {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.AddCookie(s.oidcCookie(identity.RoleHost))
		w := s.do(req)
		s.Equal(http.StatusFound, w.Code)
		s.Equal("/access/not-authorized", w.Header().Get("Location"))
	})

	s.Run("roleless oidc session may join as participant", func() {
		req := httptest.NewRequest(http.MethodGet, "/api/participant/quiz", nil)
		req.AddCookie(s.oidcCookie(identity.RoleNone))
		w := s.do(req)
		s.Equal(http.StatusOK, w.Code)
	})
}

func (s *WebHandlerSuite) TestNotAuthorizedPage() {
	w := s.do(httptest.NewRequest(http.MethodGet, "/access/not-authorized", nil))
	s.Equal(http.StatusForbidden, w.Code)
	s.Contains(w.Body.String(), "Not authorized")
}

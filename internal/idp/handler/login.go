package handler

import (
	"html/template"
	"net/http"
	"strings"

	"cohort/pkg/requestcontext"
)

var loginTemplate = template.Must(template.New("login").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>Sign in</title>
</head>
<body>
  <h1>Sign in</h1>
  {{if .Error}}<p role="alert">{{.Error}}</p>{{end}}
  <form method="post" action="/account/login">
    <input type="hidden" name="returnUrl" value="{{.ReturnURL}}">
    <label>Email or username
      <input type="text" name="identifier" autocomplete="username" autofocus>
    </label>
    <label>Password
      <input type="password" name="password" autocomplete="current-password">
    </label>
    <button type="submit">Sign in</button>
  </form>
</body>
</html>
`))

type loginPage struct {
	ReturnURL string
	Error     string
}

// HandleLoginPage handles GET /account/login.
func (h *Handler) HandleLoginPage(w http.ResponseWriter, r *http.Request) {
	h.renderLogin(w, loginPage{ReturnURL: safeReturnURL(r.URL.Query().Get("returnUrl"))})
}

// HandleLoginSubmit handles POST /account/login. On success a session cookie
// is issued and the browser returns to the authorize request it came from.
func (h *Handler) HandleLoginSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := r.ParseForm(); err != nil {
		h.renderLogin(w, loginPage{Error: "Invalid form submission."})
		return
	}
	returnURL := safeReturnURL(r.PostFormValue("returnUrl"))

	user, err := h.service.Login(ctx, r.PostFormValue("identifier"), r.PostFormValue("password"))
	if err != nil {
		h.renderLogin(w, loginPage{ReturnURL: returnURL, Error: "Invalid email or password."})
		return
	}

	if err := h.sessions.Issue(w, user.ID, requestcontext.Now(ctx)); err != nil {
		h.logger.ErrorContext(ctx, "failed to issue idp session", "error", err)
		h.renderLogin(w, loginPage{ReturnURL: returnURL, Error: "Something went wrong. Try again."})
		return
	}
	http.Redirect(w, r, returnURL, http.StatusFound)
}

func (h *Handler) renderLogin(w http.ResponseWriter, page loginPage) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := loginTemplate.Execute(w, page); err != nil {
		h.logger.Error("failed to render login page", "error", err)
	}
}

// safeReturnURL only accepts local paths. Absolute URLs and scheme-relative
// tricks fall back to the root so the login form never becomes an open
// redirect.
func safeReturnURL(raw string) string {
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") {
		return "/"
	}
	return raw
}

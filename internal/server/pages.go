package server

import (
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/brizzai/devdash/internal/auth/models"
	"github.com/brizzai/devdash/internal/dashboard"
	"github.com/brizzai/devdash/internal/logger"
	"github.com/brizzai/devdash/internal/profile"
	"github.com/brizzai/devdash/internal/requester"
	"github.com/brizzai/devdash/internal/utils"
	"go.uber.org/zap"
)

var pageFuncs = template.FuncMap{
	"field": models.Field,
	"count": models.Count,
}

var loginPage = template.Must(template.New("login").Parse(`<!doctype html>
<html><head><meta charset="utf-8"><title>devdash - sign in</title></head>
<body>
<h1>devdash</h1>
{{if .Notice}}<p class="notice">{{.Notice}}</p>{{end}}
<p><a href="/auth/start">Sign in with {{.Provider}}</a></p>
</body></html>
`))

var dashboardPage = template.Must(template.New("dashboard").Funcs(pageFuncs).Parse(`<!doctype html>
<html><head><meta charset="utf-8"><title>devdash</title></head>
<body>
<h1>devdash</h1>
{{if .Notice}}<p class="notice">{{.Notice}}</p>{{end}}
<p class="expiry">{{.Expiry}}</p>
{{with .View.Profile}}
<section class="profile">
{{if .AvatarURL}}<img src="{{.AvatarURL}}" alt="avatar" width="64" height="64">{{end}}
<h2>{{.Name}}</h2>
<dl>
<dt>Handle</dt><dd>{{field .Handle}}</dd>
<dt>Email</dt><dd>{{field .ContactEmail}}</dd>
<dt>Bio</dt><dd>{{field .Bio}}</dd>
<dt>Company</dt><dd>{{field .Affiliation}}</dd>
<dt>Location</dt><dd>{{field .Location}}</dd>
<dt>Followers</dt><dd>{{count .FollowerCount}}</dd>
<dt>Following</dt><dd>{{count .FollowingCount}}</dd>
</dl>
{{if .ProfileURL}}<a href="{{.ProfileURL}}">Open profile</a>{{end}}
</section>
{{else}}
<p class="profile">Profile unavailable.</p>
{{end}}
<section class="repos">
<h2>Repositories</h2>
{{if .View.ReposNote}}<p>{{.View.ReposNote}}</p>{{end}}
<ul>
{{range .View.Repos}}<li><a href="{{.HTMLURL}}">{{.FullName}}</a> ({{.Stars}})</li>
{{end}}</ul>
</section>
<form method="post" action="/auth/logout"><button type="submit">Sign out</button></form>
</body></html>
`))

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.guard.IsAuthorized() {
		http.Redirect(w, r, string(s.routes.Dashboard), http.StatusFound)
		return
	}
	http.Redirect(w, r, string(s.routes.Login), http.StatusFound)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.guard.IsAuthorized() {
		http.Redirect(w, r, string(s.routes.Dashboard), http.StatusFound)
		return
	}
	render(w, loginPage, map[string]interface{}{
		"Notice":   r.URL.Query().Get(utils.NoticeParam),
		"Provider": string(s.config.Provider.Name),
	})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	view, err := s.dashboard.Load(r.Context())
	if errors.Is(err, dashboard.ErrNotAuthorized) {
		utils.Redirect(w, r, string(s.routes.Login), "Your session has ended. Please sign in again.")
		return
	}
	if err != nil {
		logger.Error("Failed to load dashboard", zap.Error(err))
		http.Error(w, "Failed to load dashboard", http.StatusInternalServerError)
		return
	}
	render(w, dashboardPage, map[string]interface{}{
		"Notice": r.URL.Query().Get(utils.NoticeParam),
		"Expiry": view.Session.ExpiryMessage(time.Now()),
		"View":   view,
	})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.profiles.Get(r.Context(), s.store.Token())
	switch {
	case errors.Is(err, profile.ErrUnauthenticated):
		utils.WriteError(w, "unauthorized", "The session is no longer valid", http.StatusUnauthorized)
	case err != nil:
		logger.Warn("Profile unavailable", zap.Error(err))
		utils.WriteError(w, "profile_unavailable", "The profile could not be loaded", http.StatusBadGateway)
	default:
		utils.WriteJSON(w, p)
	}
}

func (s *Server) handleRepos(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	repos, err := s.dashboard.Repos(r.Context(), limit)
	switch {
	case errors.Is(err, requester.ErrUnauthorized):
		utils.WriteError(w, "unauthorized", "The session is no longer valid", http.StatusUnauthorized)
	case err != nil:
		logger.Warn("Repositories unavailable", zap.Error(err))
		utils.WriteError(w, "repos_unavailable", "Repositories could not be loaded", http.StatusBadGateway)
	default:
		if repos == nil {
			repos = []models.Repository{}
		}
		utils.WriteJSON(w, repos)
	}
}

func render(w http.ResponseWriter, tmpl *template.Template, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := tmpl.Execute(w, data); err != nil {
		logger.Error("Failed to render page", zap.String("page", tmpl.Name()), zap.Error(err))
	}
}

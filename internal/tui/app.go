// Package tui renders the protected dashboard in the terminal.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/brizzai/devdash/internal/auth/models"
	"github.com/brizzai/devdash/internal/dashboard"
	"github.com/brizzai/devdash/internal/session"
	tuimodels "github.com/brizzai/devdash/internal/tui/models"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// profileHeight is the number of rows reserved above the repository list
const profileHeight = 16

// Loader loads the dashboard data
type Loader interface {
	Load(ctx context.Context) (*dashboard.View, error)
}

// SignOut ends the session
type SignOut interface {
	Logout(ctx context.Context) session.Route
}

type appKeyMap struct {
	refresh key.Binding
	logout  key.Binding
	quit    key.Binding
}

func newAppKeyMap() *appKeyMap {
	return &appKeyMap{
		refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "Refresh"),
		),
		logout: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "Sign out"),
		),
		quit: key.NewBinding(
			key.WithKeys("ctrl+c", "q"),
			key.WithHelp("ctrl+c/q", "Quit"),
		),
	}
}

type state int

const (
	stateLoading state = iota
	stateReady
	stateSignedOut
)

type viewLoadedMsg struct {
	view *dashboard.View
	err  error
}

type signedOutMsg struct {
	route  session.Route
	notice string
}

// AppModel is the dashboard program
type AppModel struct {
	ctx     context.Context
	loader  Loader
	signOut SignOut
	keys    *appKeyMap
	spinner spinner.Model
	repos   list.Model
	now     func() time.Time

	state  state
	view   *dashboard.View
	notice string
	width  int
	height int
}

// NewAppModel creates the dashboard model; open is used to launch repository links.
func NewAppModel(ctx context.Context, loader Loader, signOut SignOut, open func(string) error) AppModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = noticeStyle

	keys := newAppKeyMap()
	l := list.New(nil, newRepoDelegate(newDelegateKeyMap(), open), 0, 0)
	l.Title = titleStyle.Render("Repositories")
	l.SetShowHelp(false)
	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{keys.refresh, keys.logout, keys.quit}
	}

	return AppModel{
		ctx:     ctx,
		loader:  loader,
		signOut: signOut,
		keys:    keys,
		spinner: s,
		repos:   l,
		now:     time.Now,
		state:   stateLoading,
	}
}

// Init starts the first load
func (m AppModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.load())
}

func (m AppModel) load() tea.Cmd {
	return func() tea.Msg {
		v, err := m.loader.Load(m.ctx)
		return viewLoadedMsg{view: v, err: err}
	}
}

func (m AppModel) logout() tea.Cmd {
	return func() tea.Msg {
		return signedOutMsg{route: m.signOut.Logout(m.ctx), notice: "You have been signed out."}
	}
}

// Update handles dashboard messages
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.repos.FilterState() == list.Filtering {
			break
		}
		switch {
		case key.Matches(msg, m.keys.quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.refresh) && m.state == stateReady:
			m.state = stateLoading
			m.notice = ""
			return m, tea.Batch(m.spinner.Tick, m.load())
		case key.Matches(msg, m.keys.logout) && m.state != stateSignedOut:
			return m, m.logout()
		}

	case viewLoadedMsg:
		if errors.Is(msg.err, dashboard.ErrNotAuthorized) {
			m.state = stateSignedOut
			m.notice = "Your session has ended. Please sign in again."
			return m, tea.Quit
		}
		m.state = stateReady
		if msg.err != nil {
			m.notice = fmt.Sprintf("Could not load the dashboard: %v", msg.err)
			return m, nil
		}
		m.view = msg.view
		items := make([]list.Item, len(msg.view.Repos))
		for i, r := range msg.view.Repos {
			items[i] = tuimodels.RepoItem{Repo: r}
		}
		return m, m.repos.SetItems(items)

	case signedOutMsg:
		m.state = stateSignedOut
		m.notice = msg.notice
		return m, tea.Quit

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		h, v := docStyle.GetFrameSize()
		m.repos.SetSize(msg.Width-h, max(msg.Height-v-profileHeight, 5))
		return m, nil

	case spinner.TickMsg:
		if m.state != stateLoading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	if m.state != stateReady {
		return m, nil
	}
	var cmd tea.Cmd
	m.repos, cmd = m.repos.Update(msg)
	return m, cmd
}

// View renders the dashboard
func (m AppModel) View() string {
	switch m.state {
	case stateLoading:
		return docStyle.Render(m.spinner.View() + " Loading dashboard...")
	case stateSignedOut:
		return docStyle.Render(noticeStyle.Render(m.notice))
	}

	sections := []string{titleStyle.Render("devdash")}
	if m.notice != "" {
		sections = append(sections, noticeStyle.Render(m.notice))
	}
	if m.view == nil {
		sections = append(sections, helpStyle.Render("Press r to retry or q to quit"))
		return docStyle.Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
	}

	sections = append(sections,
		helpStyle.Render(m.view.Session.ExpiryMessage(m.now())),
		renderProfile(m.view.Profile),
	)
	if m.view.ReposNote != "" {
		sections = append(sections, helpStyle.Render(m.view.ReposNote))
	}
	if len(m.view.Repos) > 0 {
		sections = append(sections, m.repos.View())
	}
	sections = append(sections, helpStyle.Render("o open • r refresh • l sign out • q quit"))

	return docStyle.Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func renderProfile(p *models.UserProfile) string {
	if p == nil {
		return profileBoxStyle.Render("Profile unavailable.")
	}
	rows := [][2]string{
		{"Name", p.Name()},
		{"Handle", models.Field(p.Handle)},
		{"Email", models.Field(p.ContactEmail)},
		{"Bio", models.Field(p.Bio)},
		{"Company", models.Field(p.Affiliation)},
		{"Location", models.Field(p.Location)},
		{"Followers", models.Count(p.FollowerCount)},
		{"Following", models.Count(p.FollowingCount)},
		{"Profile", models.Field(p.ProfileURL)},
	}
	var b strings.Builder
	for i, r := range rows {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(labelStyle.Render(r[0]))
		b.WriteString(r[1])
	}
	return profileBoxStyle.Render(b.String())
}

// SignedOut reports whether the program ended without a session
func (m AppModel) SignedOut() bool {
	return m.state == stateSignedOut
}

// Notice returns the last message shown to the user
func (m AppModel) Notice() string {
	return m.notice
}

// Package tui is the interactive terminal front end: sign-in, the visitor
// list and the visitor detail screen.
package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-logr/logr"

	"github.com/harrisonrobin/visitdesk/pkg/auth"
	"github.com/harrisonrobin/visitdesk/pkg/colors"
	"github.com/harrisonrobin/visitdesk/pkg/config"
	"github.com/harrisonrobin/visitdesk/pkg/dial"
	"github.com/harrisonrobin/visitdesk/pkg/fields"
	"github.com/harrisonrobin/visitdesk/pkg/session"
	"github.com/harrisonrobin/visitdesk/pkg/visitors"
)

// Authenticator is the auth client as seen by the screens.
type Authenticator interface {
	session.Authenticator
	SignInWithOTP(ctx context.Context, email string, createUser bool) error
	VerifyOTP(ctx context.Context, email, code string) (*auth.Session, error)
	SignOut(ctx context.Context) error
}

// VisitorSource fetches list pages and single records.
type VisitorSource interface {
	List(ctx context.Context, q visitors.Query) (*visitors.Page, error)
	Get(ctx context.Context, id, idCol string) (fields.Record, error)
}

type Deps struct {
	Auth     Authenticator
	Visitors VisitorSource
	Dialer   dial.Dialer
	Gate     *session.Gate
	// Config holds remembered preferences; SaveConfig persists them and may
	// be nil.
	Config     *config.Config
	SaveConfig func(*config.Config) error
	Log        logr.Logger
	Ctx        context.Context
}

type route int

const (
	listRoute route = iota
	detailRoute
)

// gateMsg reports a session state change.
type gateMsg session.Change

type openDetailMsg struct {
	id    string
	idCol string
}

type backMsg struct{}

type Model struct {
	deps    Deps
	state   session.State
	route   route
	spinner spinner.Model
	palette *colors.Palette

	login  *LoginModel
	list   *ListModel
	detail *DetailModel
	// detailGen discards detail responses for screens already left.
	detailGen visitors.Generation

	width, height int
	quitting      bool
}

func New(deps Deps) Model {
	if deps.Ctx == nil {
		deps.Ctx = context.Background()
	}
	if deps.Log.GetSink() == nil {
		deps.Log = logr.Discard()
	}
	if deps.Config == nil {
		deps.Config = &config.Config{}
	}
	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = mutedStyle
	palette := colors.NewPalette()
	return Model{
		deps:    deps,
		spinner: sp,
		palette: palette,
		login:   NewLoginModel(deps),
		list:    NewListModel(deps, palette),
	}
}

func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.login.SetSize(msg.Width, msg.Height)
		m.list.SetSize(msg.Width, msg.Height)
		if m.detail != nil {
			m.detail.SetSize(msg.Width, msg.Height)
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}

	case spinner.TickMsg:
		if m.state == session.Unknown {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}

	case gateMsg:
		return m.applyGate(session.Change(msg))

	case openDetailMsg:
		m.route = detailRoute
		m.detail = NewDetailModel(m.deps, msg.id, msg.idCol, m.detailGen.Next())
		m.detail.SetSize(m.width, m.height)
		return m, m.detail.Init()

	case backMsg:
		m.route = listRoute
		m.detail = nil
		m.detailGen.Next()
		return m, nil

	case quitMsg:
		m.quitting = true
		return m, tea.Quit
	}

	switch m.state {
	case session.Anonymous:
		return m, m.login.Update(msg)
	case session.Authenticated:
		if m.route == detailRoute && m.detail != nil {
			return m, m.detail.Update(msg)
		}
		return m, m.list.Update(msg)
	}
	return m, nil
}

func (m Model) applyGate(c session.Change) (tea.Model, tea.Cmd) {
	prev := m.state
	m.state = c.To
	if prev == c.To {
		return m, nil
	}
	m.deps.Log.V(1).Info("screen change", "from", prev.String(), "to", c.To.String())
	switch c.To {
	case session.Anonymous:
		m.route = listRoute
		m.detail = nil
		m.detailGen.Next()
		m.list.Reset()
		return m, m.login.Reset()
	case session.Authenticated:
		m.route = listRoute
		return m, m.list.Init()
	}
	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	switch m.state {
	case session.Anonymous:
		return m.login.View()
	case session.Authenticated:
		if m.route == detailRoute && m.detail != nil {
			return m.detail.View()
		}
		return m.list.View()
	}
	return lipgloss.NewStyle().Padding(1, 2).Render(m.spinner.View() + " " + mutedStyle.Render("Loading…"))
}

// saveConfig applies change to the remembered preferences and persists a
// copy in the background.
func saveConfig(deps Deps, change func(*config.Config)) tea.Cmd {
	if deps.Config == nil {
		return nil
	}
	change(deps.Config)
	if deps.SaveConfig == nil {
		return nil
	}
	cfg := *deps.Config
	return func() tea.Msg {
		if err := deps.SaveConfig(&cfg); err != nil {
			deps.Log.V(1).Info("preferences not saved", "error", err.Error())
		}
		return nil
	}
}

type quitMsg struct{}

func quit() tea.Msg { return quitMsg{} }

// Run shows the TUI until the user quits. The gate is attached to the auth
// client for the lifetime of the program and released before Run returns.
func Run(deps Deps, opts ...tea.ProgramOption) error {
	if deps.Ctx == nil {
		deps.Ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(deps.Ctx)
	defer cancel()
	deps.Ctx = ctx

	p := tea.NewProgram(New(deps), append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)...)
	deps.Gate.OnChange(func(c session.Change) { p.Send(gateMsg(c)) })
	defer deps.Gate.OnChange(nil)

	releases := make(chan func(), 1)
	go func() {
		release, err := deps.Gate.Attach(ctx, deps.Auth)
		if err != nil {
			deps.Log.Error(err, "session lookup failed")
			if err := deps.Gate.Resolve(nil); err != nil {
				deps.Log.V(1).Info("session already resolved", "error", err.Error())
			}
			release = func() {}
		}
		releases <- release
	}()

	_, err := p.Run()
	cancel()
	(<-releases)()
	return err
}

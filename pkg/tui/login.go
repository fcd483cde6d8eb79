package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harrisonrobin/visitdesk/pkg/apperr"
	"github.com/harrisonrobin/visitdesk/pkg/auth"
	"github.com/harrisonrobin/visitdesk/pkg/config"
)

type loginStep int

const (
	emailStep loginStep = iota
	codeStep
)

type otpSentMsg struct{ err error }

type verifiedMsg struct {
	email string
	err   error
}

type LoginModel struct {
	deps    Deps
	step    loginStep
	email   textinput.Model
	code    textinput.Model
	spinner spinner.Model
	loading bool
	err     string
	width   int
	height  int
}

func NewLoginModel(deps Deps) *LoginModel {
	email := textinput.New()
	email.Placeholder = "you@company.com"
	email.Prompt = ""
	email.CharLimit = 254
	if deps.Config != nil {
		email.SetValue(deps.Config.LastEmail)
	}
	email.Focus()

	code := textinput.New()
	code.Placeholder = "123456 or paste link token"
	code.Prompt = ""
	code.CharLimit = 512

	sp := spinner.New(spinner.WithSpinner(spinner.MiniDot))
	return &LoginModel{deps: deps, email: email, code: code, spinner: sp}
}

func (m *LoginModel) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.email.Width = min(max(width-8, 20), 48)
	m.code.Width = m.email.Width
}

// Reset returns to the email step, keeping the address typed so far.
func (m *LoginModel) Reset() tea.Cmd {
	m.step = emailStep
	m.loading = false
	m.err = ""
	m.code.SetValue("")
	m.code.Blur()
	return m.email.Focus()
}

func (m *LoginModel) normalizedEmail() string {
	return auth.NormalizeEmail(m.email.Value())
}

func (m *LoginModel) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case otpSentMsg:
		m.loading = false
		if msg.err != nil {
			m.err = apperr.Message(msg.err, apperr.AuthRequest.Fallback())
			return nil
		}
		m.step = codeStep
		m.email.Blur()
		return m.code.Focus()

	case verifiedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = apperr.Message(msg.err, apperr.AuthVerify.Fallback())
			return nil
		}
		return saveConfig(m.deps, func(c *config.Config) { c.LastEmail = msg.email })

	case spinner.TickMsg:
		if !m.loading {
			return nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return cmd

	case tea.KeyMsg:
		if m.loading {
			return nil
		}
		switch msg.String() {
		case "enter":
			if m.step == emailStep {
				return m.requestCode()
			}
			return m.verify()
		case "esc":
			if m.step == codeStep {
				return m.back()
			}
			return nil
		}
	}

	var cmd tea.Cmd
	if m.step == emailStep {
		m.email, cmd = m.email.Update(msg)
	} else {
		m.code, cmd = m.code.Update(msg)
	}
	return cmd
}

func (m *LoginModel) back() tea.Cmd {
	m.step = emailStep
	m.code.SetValue("")
	m.code.Blur()
	m.err = ""
	return m.email.Focus()
}

func (m *LoginModel) requestCode() tea.Cmd {
	email := m.normalizedEmail()
	if email == "" {
		return nil
	}
	m.loading = true
	m.err = ""
	deps := m.deps
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		return otpSentMsg{err: deps.Auth.SignInWithOTP(deps.Ctx, email, true)}
	})
}

func (m *LoginModel) verify() tea.Cmd {
	code := strings.TrimSpace(m.code.Value())
	if code == "" {
		return nil
	}
	email := m.normalizedEmail()
	m.loading = true
	m.err = ""
	deps := m.deps
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		_, err := deps.Auth.VerifyOTP(deps.Ctx, email, code)
		return verifiedMsg{email: email, err: err}
	})
}

func (m *LoginModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Sign in"))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render("Enter your email and we'll send you a sign-in link or code to access visitor records."))
	b.WriteString("\n")

	if m.err != "" {
		b.WriteString(errorStyle.Render(m.err))
		b.WriteString("\n")
	} else {
		b.WriteString("\n")
	}

	b.WriteString(labelStyle.Render("Email"))
	b.WriteString("\n")
	if m.step == emailStep {
		b.WriteString(m.email.View())
	} else {
		b.WriteString(valueStyle.Render(m.normalizedEmail()))
	}
	b.WriteString("\n")

	if m.step == codeStep {
		b.WriteString("\n")
		b.WriteString(labelStyle.Render("Code (from email)"))
		b.WriteString("\n")
		b.WriteString(m.code.View())
		b.WriteString("\n")
	}

	switch {
	case m.loading:
		b.WriteString(buttonStyle.Render(m.spinner.View()))
	case m.step == emailStep:
		b.WriteString(buttonStyle.Render("Send sign-in link"))
		b.WriteString(mutedStyle.Render("  enter"))
	default:
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Center,
			secondaryButtonStyle.Render("Back"), mutedStyle.Render(" esc   "),
			buttonStyle.Render("Verify"), mutedStyle.Render("  enter"),
		))
	}
	return lipgloss.NewStyle().Padding(1, 2).Render(b.String())
}

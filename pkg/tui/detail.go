package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harrisonrobin/visitdesk/pkg/apperr"
	"github.com/harrisonrobin/visitdesk/pkg/visitors"
)

type detailLoadedMsg struct {
	token    uint64
	sections []visitors.DetailSection
	err      error
}

type DetailModel struct {
	deps     Deps
	id       string
	idCol    string
	token    uint64
	spinner  spinner.Model
	viewport viewport.Model
	help     help.Model

	sections []visitors.DetailSection
	loading  bool
	err      string
	status   string

	width, height int
}

func NewDetailModel(deps Deps, id, idCol string, token uint64) *DetailModel {
	return &DetailModel{
		deps:     deps,
		id:       id,
		idCol:    idCol,
		token:    token,
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		viewport: viewport.New(80, 20),
		help:     help.New(),
		loading:  true,
	}
}

func (m *DetailModel) SetSize(width, height int) {
	m.width = width
	m.height = height
	if width > 0 && height > 0 {
		m.viewport.Width = width - 4
		m.viewport.Height = max(height-6, 3)
	}
	m.help.Width = width
	m.viewport.SetContent(m.renderSections())
}

func (m *DetailModel) Init() tea.Cmd {
	deps, id, idCol, token := m.deps, m.id, m.idCol, m.token
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		row, err := deps.Visitors.Get(deps.Ctx, id, idCol)
		if err != nil {
			return detailLoadedMsg{token: token, err: err}
		}
		return detailLoadedMsg{token: token, sections: visitors.Detail(row)}
	})
}

// Phone is the dial target of the first phone field shown, if any.
func (m *DetailModel) Phone() string {
	for _, sec := range m.sections {
		for _, f := range sec.Fields {
			if f.Tel != "" {
				return strings.TrimPrefix(f.Tel, "tel:")
			}
		}
	}
	return ""
}

func (m *DetailModel) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case detailLoadedMsg:
		if msg.token != m.token {
			return nil
		}
		m.loading = false
		if msg.err != nil {
			m.err = apperr.Message(msg.err, apperr.NotFound.Fallback())
			return nil
		}
		m.sections = msg.sections
		m.viewport.SetContent(m.renderSections())
		m.viewport.GotoTop()
		return nil

	case dialedMsg:
		if msg.err != nil {
			m.status = msg.err.Error()
		}
		return nil

	case spinner.TickMsg:
		if !m.loading {
			return nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return cmd

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, detailKeys.Quit):
			return quit
		case key.Matches(msg, detailKeys.Back):
			return func() tea.Msg { return backMsg{} }
		case key.Matches(msg, detailKeys.Dial):
			return dialCmd(m.deps, m.Phone())
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return cmd
}

func (m *DetailModel) renderSections() string {
	var out []string
	for _, sec := range m.sections {
		if len(sec.Fields) == 0 {
			continue
		}
		var b strings.Builder
		b.WriteString(sectionTitleStyle.Render(sec.Title))
		for _, f := range sec.Fields {
			b.WriteString("\n")
			b.WriteString(labelStyle.Render(f.Label))
			b.WriteString("\n")
			if f.Tel != "" {
				b.WriteString(linkStyle.Render(f.Value))
			} else {
				b.WriteString(valueStyle.Render(f.Value))
			}
		}
		style := sectionStyle
		if m.width > 0 {
			style = style.Width(m.width - 6)
		}
		out = append(out, style.Render(b.String()))
	}
	return lipgloss.JoinVertical(lipgloss.Left, out...)
}

func (m *DetailModel) View() string {
	pad := lipgloss.NewStyle().Padding(1, 2)
	title := titleStyle.Render("Visitor details")
	switch {
	case m.loading:
		return pad.Render(title + "\n" + m.spinner.View())
	case m.err != "":
		return pad.Render(title + "\n" + errorStyle.Render(m.err) + "\n" + linkStyle.Render("Back to visitors") + mutedStyle.Render("  esc"))
	}
	body := title + "\n" + m.viewport.View()
	if m.status != "" {
		body += "\n" + mutedStyle.Render(m.status)
	}
	return pad.Render(body + "\n" + m.help.View(detailKeys))
}

package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harrisonrobin/visitdesk/pkg/apperr"
	"github.com/harrisonrobin/visitdesk/pkg/colors"
	"github.com/harrisonrobin/visitdesk/pkg/config"
	"github.com/harrisonrobin/visitdesk/pkg/fields"
	"github.com/harrisonrobin/visitdesk/pkg/format"
	"github.com/harrisonrobin/visitdesk/pkg/visitors"
)

// searchTickMsg fires when the search debounce for token elapses.
type searchTickMsg struct{ token uint64 }

type listLoadedMsg struct {
	token uint64
	page  *visitors.Page
	err   error
}

type dialedMsg struct{ err error }

type signedOutMsg struct{ err error }

type ListModel struct {
	deps    Deps
	palette *colors.Palette
	search  textinput.Model
	spinner spinner.Model
	help    help.Model

	rows       []fields.Record
	total      *int64
	cursor     int
	offset     int
	descending bool
	loading    bool
	refreshing bool
	err        string
	status     string
	gen        visitors.Generation

	width, height int
}

func NewListModel(deps Deps, palette *colors.Palette) *ListModel {
	search := textinput.New()
	search.Placeholder = "Search name, phone, center…"
	search.Prompt = "⌕ "
	search.CharLimit = 120

	if palette == nil {
		palette = colors.NewPalette()
	}
	descending := true
	if deps.Config != nil && deps.Config.SortAscending {
		descending = false
	}
	return &ListModel{
		deps:       deps,
		palette:    palette,
		search:     search,
		spinner:    spinner.New(spinner.WithSpinner(spinner.Dot)),
		help:       help.New(),
		descending: descending,
	}
}

func (m *ListModel) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.search.Width = max(width-8, 10)
	m.help.Width = width
}

// Init starts the first fetch.
func (m *ListModel) Init() tea.Cmd {
	m.loading = true
	return tea.Batch(m.spinner.Tick, m.fetch(m.gen.Next()))
}

// Reset forgets rows and pending requests, for sign-out.
func (m *ListModel) Reset() {
	m.gen.Next()
	m.rows = nil
	m.total = nil
	m.cursor, m.offset = 0, 0
	m.err, m.status = "", ""
	m.loading, m.refreshing = false, false
	m.search.SetValue("")
	m.search.Blur()
}

func (m *ListModel) query() visitors.Query {
	return visitors.Query{Search: m.search.Value(), Descending: m.descending}
}

func (m *ListModel) fetch(token uint64) tea.Cmd {
	m.err = ""
	deps, q := m.deps, m.query()
	return func() tea.Msg {
		page, err := deps.Visitors.List(deps.Ctx, q)
		return listLoadedMsg{token: token, page: page, err: err}
	}
}

func (m *ListModel) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case listLoadedMsg:
		if !m.gen.Current(msg.token) {
			return nil
		}
		m.loading, m.refreshing = false, false
		if msg.err != nil {
			m.err = apperr.Message(msg.err, apperr.Fetch.Fallback())
			return nil
		}
		m.rows = msg.page.Rows
		m.total = msg.page.Total
		m.cursor, m.offset = 0, 0
		return nil

	case searchTickMsg:
		if !m.gen.Current(msg.token) {
			return nil
		}
		m.loading = true
		return m.fetch(msg.token)

	case dialedMsg:
		if msg.err != nil {
			m.status = msg.err.Error()
		}
		return nil

	case signedOutMsg:
		if msg.err != nil {
			m.deps.Log.Info("sign-out did not reach the server", "error", msg.err.Error())
		}
		return nil

	case spinner.TickMsg:
		if !m.loading && !m.refreshing {
			return nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return cmd

	case tea.KeyMsg:
		if m.search.Focused() {
			return m.updateSearch(msg)
		}
		return m.updateKeys(msg)
	}
	return nil
}

func (m *ListModel) updateSearch(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "enter", "esc", "tab":
		m.search.Blur()
		return nil
	}
	before := m.search.Value()
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if m.search.Value() == before {
		return cmd
	}
	return tea.Batch(cmd, m.searchChanged())
}

// searchChanged schedules a fetch after the debounce, or right away when the
// search was cleared.
func (m *ListModel) searchChanged() tea.Cmd {
	token := m.gen.Next()
	delay := visitors.DebounceFor(m.search.Value())
	if delay == 0 {
		m.loading = true
		return m.fetch(token)
	}
	return tea.Tick(delay, func(time.Time) tea.Msg { return searchTickMsg{token: token} })
}

func (m *ListModel) updateKeys(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, listKeys.Quit):
		return quit
	case key.Matches(msg, listKeys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		m.scroll()
	case key.Matches(msg, listKeys.Down):
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}
		m.scroll()
	case key.Matches(msg, listKeys.Search):
		return m.search.Focus()
	case key.Matches(msg, listKeys.Sort):
		return m.ToggleSort()
	case key.Matches(msg, listKeys.Refresh):
		return m.Refresh()
	case key.Matches(msg, listKeys.Open):
		return m.openSelected()
	case key.Matches(msg, listKeys.Dial):
		return m.dialSelected()
	case key.Matches(msg, listKeys.SignOut):
		deps := m.deps
		return func() tea.Msg { return signedOutMsg{err: deps.Auth.SignOut(deps.Ctx)} }
	}
	return nil
}

// ToggleSort flips the date order and clears the rows until the new page
// arrives.
func (m *ListModel) ToggleSort() tea.Cmd {
	m.descending = !m.descending
	m.rows = nil
	m.cursor, m.offset = 0, 0
	m.loading = true
	ascending := !m.descending
	save := saveConfig(m.deps, func(c *config.Config) { c.SortAscending = ascending })
	return tea.Batch(m.spinner.Tick, m.fetch(m.gen.Next()), save)
}

// Refresh refetches while keeping the current rows on screen.
func (m *ListModel) Refresh() tea.Cmd {
	m.refreshing = true
	return tea.Batch(m.spinner.Tick, m.fetch(m.gen.Next()))
}

func (m *ListModel) selected() (fields.Record, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return fields.Record{}, false
	}
	return m.rows[m.cursor], true
}

func (m *ListModel) openSelected() tea.Cmd {
	row, ok := m.selected()
	if !ok {
		return nil
	}
	id := visitors.RecordID(row)
	if id == "" {
		return nil
	}
	return func() tea.Msg { return openDetailMsg{id: id} }
}

func (m *ListModel) dialSelected() tea.Cmd {
	row, ok := m.selected()
	if !ok {
		return nil
	}
	return dialCmd(m.deps, visitors.Phone(row))
}

func dialCmd(deps Deps, phone string) tea.Cmd {
	if phone == "" || deps.Dialer == nil {
		return nil
	}
	return func() tea.Msg { return dialedMsg{err: deps.Dialer.Dial(deps.Ctx, phone)} }
}

// visibleRows is how many three-line rows fit between the toolbar and the
// footer.
func (m *ListModel) visibleRows() int {
	if m.height <= 0 {
		return len(m.rows)
	}
	return max((m.height-10)/4, 1)
}

// scroll keeps the cursor inside the visible window.
func (m *ListModel) scroll() {
	n := m.visibleRows()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+n {
		m.offset = m.cursor - n + 1
	}
}

func (m *ListModel) View() string {
	if m.loading && len(m.rows) == 0 && m.err == "" {
		return lipgloss.NewStyle().Padding(1, 2).Render(
			titleStyle.Render("Visitors") + "\n" +
				m.search.View() + "\n\n" +
				m.spinner.View() + " " + mutedStyle.Render("Loading visitors…"))
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Visitors"))
	b.WriteString("\n")
	b.WriteString(m.search.View())
	b.WriteString("\n")
	arrow := "▼"
	if !m.descending {
		arrow = "▲"
	}
	sortHint := mutedStyle.Render("Date " + arrow)
	if m.refreshing || m.loading {
		sortHint += " " + m.spinner.View()
	}
	b.WriteString(sortHint)
	b.WriteString("\n")

	if m.err != "" {
		b.WriteString(errorStyle.Render(m.err))
		b.WriteString("\n")
	}

	if len(m.rows) == 0 {
		if !m.loading {
			b.WriteString(lipgloss.NewStyle().Padding(1, 2).Render(mutedStyle.Render("No visitors found.")))
			b.WriteString("\n")
		}
	} else {
		end := min(m.offset+m.visibleRows(), len(m.rows))
		for i := m.offset; i < end; i++ {
			b.WriteString(m.renderRow(m.rows[i], i == m.cursor))
			b.WriteString("\n")
		}
	}

	if m.total != nil && *m.total > 0 {
		b.WriteString(footerStyle.Render(fmt.Sprintf("Showing up to %d of %s", visitors.PageSize, format.Format(*m.total))))
		b.WriteString("\n")
	}
	if m.status != "" {
		b.WriteString(mutedStyle.Render(m.status))
		b.WriteString("\n")
	}
	b.WriteString(m.help.View(listKeys))
	return lipgloss.NewStyle().Padding(1, 2).Render(b.String())
}

func (m *ListModel) renderRow(row fields.Record, selected bool) string {
	s := visitors.Summarize(row)
	centerColor := colors.Neutral
	if s.Center != format.Placeholder {
		centerColor = m.palette.ColorFor(s.Center)
	}
	lines := []string{
		rowTitleStyle.Render(s.Name),
		mutedStyle.Render(s.Date+" · ") + badge(s.Center, centerColor),
	}
	if s.Phone != "" {
		lines = append(lines, linkStyle.Render(s.Phone))
	}
	style := rowStyle
	if selected {
		style = selectedRowStyle
	}
	if m.width > 0 {
		style = style.MaxWidth(m.width - 4)
	}
	return style.Render(strings.Join(lines, "\n"))
}

package tui

import "github.com/charmbracelet/bubbles/key"

type listKeyMap struct {
	Up      key.Binding
	Down    key.Binding
	Open    key.Binding
	Search  key.Binding
	Sort    key.Binding
	Refresh key.Binding
	Dial    key.Binding
	SignOut key.Binding
	Quit    key.Binding
}

func (k listKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Open, k.Search, k.Sort, k.Refresh, k.Dial, k.SignOut, k.Quit}
}

func (k listKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Up, k.Down, k.Open}, {k.Search, k.Sort, k.Refresh}, {k.Dial, k.SignOut, k.Quit}}
}

var listKeys = listKeyMap{
	Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Open:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "details")),
	Search:  key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
	Sort:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sort by date")),
	Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	Dial:    key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "call")),
	SignOut: key.NewBinding(key.WithKeys("O"), key.WithHelp("O", "sign out")),
	Quit:    key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
}

type detailKeyMap struct {
	Back key.Binding
	Dial key.Binding
	Quit key.Binding
}

func (k detailKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Back, k.Dial, k.Quit}
}

func (k detailKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var detailKeys = detailKeyMap{
	Back: key.NewBinding(key.WithKeys("esc", "backspace", "h"), key.WithHelp("esc", "back to visitors")),
	Dial: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "call")),
	Quit: key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
}

package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Export    key.Binding
	Adversary key.Binding
	Upload    key.Binding
	Refresh   key.Binding
	Help      key.Binding
	Close     key.Binding
	Confirm   key.Binding
	Quit      key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Export:    key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "export layer")),
		Adversary: key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "choose adversary")),
		Upload:    key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "upload adversary layer")),
		Refresh:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Help:      key.NewBinding(key.WithKeys("?", "h"), key.WithHelp("?", "help")),
		Close:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close")),
		Confirm:   key.NewBinding(key.WithKeys("enter", "esc", " "), key.WithHelp("enter", "ok")),
		Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Export, k.Adversary, k.Upload, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Export, k.Adversary, k.Upload},
		{k.Refresh, k.Help, k.Close, k.Quit},
	}
}

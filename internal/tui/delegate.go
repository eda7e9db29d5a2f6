package tui

import (
	"github.com/brizzai/devdash/internal/tui/models"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
)

// newRepoDelegate returns a list.DefaultDelegate that opens the selected repository.
func newRepoDelegate(keys *delegateKeyMap, open func(string) error) list.DefaultDelegate {
	d := list.NewDefaultDelegate()

	d.UpdateFunc = func(msg tea.Msg, m *list.Model) tea.Cmd {
		item, ok := m.SelectedItem().(models.RepoItem)
		if !ok {
			return nil
		}

		if msg, ok := msg.(tea.KeyMsg); ok && key.Matches(msg, keys.open) {
			if item.Repo.HTMLURL == "" {
				return m.NewStatusMessage(statusMessageStyle("No link for " + item.Repo.FullName))
			}
			if err := open(item.Repo.HTMLURL); err != nil {
				return m.NewStatusMessage(statusMessageStyle("Could not open " + item.Repo.FullName))
			}
			return m.NewStatusMessage(statusMessageStyle("Opened " + item.Repo.FullName))
		}
		return nil
	}

	help := []key.Binding{keys.open}

	d.ShortHelpFunc = func() []key.Binding {
		return help
	}

	d.FullHelpFunc = func() [][]key.Binding {
		return [][]key.Binding{help}
	}

	return d
}

// delegateKeyMap holds key bindings for list item actions.
type delegateKeyMap struct {
	open key.Binding
}

func (d delegateKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{d.open}
}

func (d delegateKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{d.open}}
}

func newDelegateKeyMap() *delegateKeyMap {
	return &delegateKeyMap{
		open: key.NewBinding(
			key.WithKeys("o", "enter"),
			key.WithHelp("o", "Open in browser"),
		),
	}
}

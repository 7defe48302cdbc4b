package plugin

import (
	"fmt"
	"strings"

	"github.com/andrei-cloud/go_draconis/internal/app"
	"github.com/andrei-cloud/go_draconis/internal/cache"
	"github.com/andrei-cloud/go_draconis/internal/plugins"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

// NewBrowseCommand creates the interactive browse command.
func NewBrowseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Interactively load and unload plugins",
		Long: `Browse every static and discovered plugin. Space or enter toggles the
selected plugin, r rescans the search paths and q quits.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(appCtx *app.Context) error {
				m := newBrowseModel(appCtx.Plugins, appCtx.Store)
				_, err := tea.NewProgram(m,
					tea.WithInput(cmd.InOrStdin()),
					tea.WithOutput(cmd.OutOrStdout()),
				).Run()

				return err
			})
		},
	}
}

type browseItem struct {
	name   string
	static bool
}

type browseModel struct {
	pm       *plugins.PluginManager
	store    *cache.Store
	items    []browseItem
	cursor   int
	status   string
	quitting bool
}

// newBrowseModel creates the TUI model over pm.
func newBrowseModel(pm *plugins.PluginManager, store *cache.Store) browseModel {
	m := browseModel{pm: pm, store: store}
	m.refresh()

	return m
}

// refresh rebuilds the item list: static plugins first, then discovered ones.
// A discovered library shadowed by a static plugin of the same name is hidden.
func (m *browseModel) refresh() {
	m.items = m.items[:0]
	static := map[string]bool{}
	for _, name := range m.pm.ListStaticPlugins() {
		static[name] = true
		m.items = append(m.items, browseItem{name: name, static: true})
	}
	for _, name := range m.pm.ListDiscoveredPlugins() {
		if !static[name] {
			m.items = append(m.items, browseItem{name: name})
		}
	}
	if m.cursor >= len(m.items) {
		m.cursor = max(len(m.items)-1, 0)
	}
}

// Init initializes the model.
func (m browseModel) Init() tea.Cmd {
	return nil
}

// Update handles messages and updates the model state.
func (m browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "ctrl+c", "q", "esc":
		m.quitting = true

		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
	case "r":
		n := m.pm.ScanForPlugins()
		m.refresh()
		m.status = fmt.Sprintf("rescanned: %d dynamic plugins found", n)
	case " ", "enter":
		m.toggle()
	}

	return m, nil
}

// toggle loads the selected plugin, or unloads it when already loaded.
func (m *browseModel) toggle() {
	if len(m.items) == 0 {
		return
	}
	name := m.items[m.cursor].name

	if m.pm.IsPluginLoaded(name) {
		if err := m.pm.UnloadPlugin(name); err != nil {
			m.status = fmt.Sprintf("unload %s: %v", name, err)
			return
		}
		m.status = "unloaded " + name

		return
	}

	if err := m.pm.LoadPlugin(name, m.store); err != nil {
		m.status = fmt.Sprintf("load %s: %v", name, err)
		return
	}
	m.status = "loaded " + name
}

// View renders the current state of the model.
func (m browseModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString("Plugins\n")
	b.WriteString(strings.Repeat("=", 50) + "\n\n")

	if len(m.items) == 0 {
		b.WriteString("  no plugins found\n")
	}
	for i, it := range m.items {
		cursor := "  "
		if i == m.cursor {
			cursor = "▶ "
		}
		mark := "○"
		detail := ""
		if rec, ok := m.pm.GetPlugin(it.name); ok && rec.Loaded {
			mark = "●"
			detail = fmt.Sprintf(" %s %s [%s]", rec.Metadata.Version, rec.Metadata.Kind, state(rec))
		}
		source := "dynamic"
		if it.static {
			source = "static"
		}
		fmt.Fprintf(&b, "%s%s %s (%s)%s\n", cursor, mark, it.name, source, detail)
	}

	if m.status != "" {
		b.WriteString("\n" + m.status + "\n")
	}
	b.WriteString("\n↑/↓ select • space toggle • r rescan • q quit\n")

	return b.String()
}

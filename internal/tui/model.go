// Package tui provides the BubbleTea-based layout inspector.
package tui

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jmylchreest/winsession/internal/adapter/output"
	"github.com/jmylchreest/winsession/internal/config"
	"github.com/jmylchreest/winsession/internal/core"
	"github.com/jmylchreest/winsession/internal/model"
	"github.com/jmylchreest/winsession/internal/store"
)

// Mode represents the current UI mode.
type Mode int

const (
	ModeList Mode = iota
	ModeDetail
	ModeHelp
)

// Actions are window commands the inspector can send. Either may be nil.
type Actions struct {
	Close func(label string) error
	Shake func(label string) error
}

// Model is the main TUI model.
type Model struct {
	cfg     *config.Config
	load    func() *model.AppState
	actions Actions

	mode Mode

	list     list.Model
	viewport viewport.Model
	help     help.Model
	keys     KeyMap

	state      *model.AppState
	workspaces []string
	current    int
	width      int
	height     int
	ready      bool

	statusMsg string
	statusErr bool

	// Signalled when the layout file changes; nil disables live refresh.
	refreshCh <-chan struct{}
}

// windowItem wraps an active window record for the list component.
type windowItem struct {
	label  string
	record model.ActiveWindow
	preset *model.CategoryPreset
}

func (i windowItem) Title() string {
	return i.label
}

func (i windowItem) Description() string {
	desc := fmt.Sprintf("%s · %s · %s", i.record.Type, i.record.Category, i.record.URL)
	if i.preset != nil {
		desc += " · " + output.FormatPreset(*i.preset)
	}
	return desc
}

func (i windowItem) FilterValue() string {
	return i.label + " " + i.record.Category + " " + i.record.URL
}

// New creates a new TUI model. load is called on start and on every refresh.
func New(cfg *config.Config, load func() *model.AppState, actions Actions, refreshCh <-chan struct{}) Model {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Window Layout"
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(true)
	l.DisableQuitKeybindings()

	return Model{
		cfg:       cfg,
		load:      load,
		actions:   actions,
		mode:      ModeList,
		list:      l,
		help:      help.New(),
		keys:      DefaultKeyMap(),
		state:     model.NewAppState(),
		refreshCh: refreshCh,
	}
}

// Init initializes the TUI.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.loadState,
		m.watchForChanges,
	)
}

type stateMsg struct {
	state   *model.AppState
	watched bool // delivered by watchForChanges, which must be re-armed
}

type statusMsg struct {
	text  string
	isErr bool
}

type clearStatusMsg struct{}

func (m Model) loadState() tea.Msg {
	if m.load == nil {
		return stateMsg{state: model.NewAppState()}
	}
	return stateMsg{state: m.load()}
}

// watchForChanges waits for the layout file to change.
func (m Model) watchForChanges() tea.Msg {
	if m.refreshCh == nil {
		return nil
	}
	if _, ok := <-m.refreshCh; !ok {
		return nil
	}
	msg := m.loadState().(stateMsg)
	msg.watched = true
	return msg
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

		m.list.SetSize(msg.Width, msg.Height-3)
		m.viewport = viewport.New(msg.Width, msg.Height-4)
		m.viewport.YPosition = 2
		m.help.Width = msg.Width
		return m, nil

	case stateMsg:
		m.setState(msg.state)
		if msg.watched {
			return m, m.watchForChanges
		}
		return m, nil

	case statusMsg:
		m.statusMsg = msg.text
		m.statusErr = msg.isErr
		return m, tea.Tick(3*time.Second, func(time.Time) tea.Msg {
			return clearStatusMsg{}
		})

	case clearStatusMsg:
		m.statusMsg = ""
		m.statusErr = false
		return m, nil
	}

	var cmd tea.Cmd
	switch m.mode {
	case ModeList:
		m.list, cmd = m.list.Update(msg)
	case ModeDetail:
		m.viewport, cmd = m.viewport.Update(msg)
	}
	return m, cmd
}

// setState replaces the state, keeping the selected workspace when it still exists.
func (m *Model) setState(state *model.AppState) {
	if state == nil {
		state = model.NewAppState()
	}
	selected := m.Workspace()

	m.state = state
	m.workspaces = state.WorkspaceIDs()
	m.current = 0
	for i, id := range m.workspaces {
		if id == selected {
			m.current = i
			break
		}
	}
	m.list.SetItems(m.buildListItems())
}

// Workspace returns the id of the workspace being shown.
func (m Model) Workspace() string {
	if len(m.workspaces) == 0 {
		return ""
	}
	return m.workspaces[m.current]
}

func (m Model) buildListItems() []list.Item {
	ws := m.state.Workspace(m.Workspace())
	if ws == nil {
		return nil
	}
	entries := core.WorkspaceEntries(m.Workspace(), ws)
	items := make([]list.Item, 0, len(entries))
	for _, e := range entries {
		item := windowItem{label: e.Label, record: e.ActiveWindow}
		if preset, ok := ws.CategoryPresets[item.record.Category]; ok {
			item.preset = &preset
		}
		items = append(items, item)
	}
	return items
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.list.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		if m.mode == ModeHelp {
			m.mode = ModeList
		} else {
			m.mode = ModeHelp
		}
		return m, nil
	}

	switch m.mode {
	case ModeList:
		return m.handleListKey(msg)
	case ModeDetail:
		if key.Matches(msg, m.keys.Back) {
			m.mode = ModeList
			return m, nil
		}
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	case ModeHelp:
		if key.Matches(msg, m.keys.Back) {
			m.mode = ModeList
		}
	}
	return m, nil
}

func (m Model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	item, selected := m.list.SelectedItem().(windowItem)

	switch {
	case key.Matches(msg, m.keys.NextWorkspace):
		if len(m.workspaces) > 0 {
			m.current = (m.current + 1) % len(m.workspaces)
			m.list.SetItems(m.buildListItems())
			m.list.ResetSelected()
		}
		return m, nil

	case key.Matches(msg, m.keys.PrevWorkspace):
		if len(m.workspaces) > 0 {
			m.current = (m.current - 1 + len(m.workspaces)) % len(m.workspaces)
			m.list.SetItems(m.buildListItems())
			m.list.ResetSelected()
		}
		return m, nil

	case key.Matches(msg, m.keys.Enter):
		if selected {
			m.mode = ModeDetail
			m.viewport.SetContent(m.renderDetail(item))
			m.viewport.GotoTop()
		}
		return m, nil

	case key.Matches(msg, m.keys.Copy):
		if selected {
			return m, m.copyToClipboard(item.label)
		}
		return m, nil

	case key.Matches(msg, m.keys.CopyAll):
		ws := m.state.Workspace(m.Workspace())
		if ws == nil {
			return m, nil
		}
		data, err := json.MarshalIndent(ws, "", "  ")
		if err != nil {
			return m, status("Failed to marshal JSON: "+err.Error(), true)
		}
		return m, m.copyToClipboard(string(data))

	case key.Matches(msg, m.keys.Close):
		if selected {
			return m, m.runAction("close", m.actions.Close, item.label)
		}
		return m, nil

	case key.Matches(msg, m.keys.Shake):
		if selected {
			return m, m.runAction("shake", m.actions.Shake, item.label)
		}
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		return m, m.loadState
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) runAction(name string, fn func(string) error, label string) tea.Cmd {
	if fn == nil {
		return status(name+" needs a running session", true)
	}
	return func() tea.Msg {
		if err := fn(label); err != nil {
			return statusMsg{text: fmt.Sprintf("Failed to %s %s: %v", name, label, err), isErr: true}
		}
		return statusMsg{text: fmt.Sprintf("Sent %s to %s", name, label)}
	}
}

func (m Model) copyToClipboard(text string) tea.Cmd {
	write := newClipboard(m.cfg.TUI.Clipboard)
	return func() tea.Msg {
		if err := write(text); err != nil {
			return statusMsg{text: "Copy failed: " + err.Error(), isErr: true}
		}
		return statusMsg{text: "Copied to clipboard"}
	}
}

func status(text string, isErr bool) tea.Cmd {
	return func() tea.Msg {
		return statusMsg{text: text, isErr: isErr}
	}
}

func (m Model) renderDetail(item windowItem) string {
	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12"))

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("8"))

	var sb strings.Builder
	sb.WriteString(headerStyle.Render(item.label) + "\n\n")

	row := func(name, value string) {
		sb.WriteString(labelStyle.Render(fmt.Sprintf("%-10s", name)) + " " + value + "\n")
	}
	row("Workspace", m.Workspace())
	row("Type", string(item.record.Type))
	row("Category", item.record.Category)
	row("URL", item.record.URL)
	if item.preset != nil {
		row("Preset", output.FormatPreset(*item.preset))
	} else {
		row("Preset", "none")
	}
	return sb.String()
}

// View renders the TUI.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	switch m.mode {
	case ModeDetail:
		header := lipgloss.NewStyle().Bold(true).Padding(0, 1).Render("Window Detail")
		return header + "\n" + m.viewport.View() + "\n" + m.footer()
	case ModeHelp:
		return m.help.FullHelpView(m.keys.FullHelp()) + "\n\n" +
			lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render("Press ? or esc to return")
	default:
		return m.workspaceBar() + "\n" + m.list.View() + "\n" + m.footer()
	}
}

func (m Model) workspaceBar() string {
	if len(m.workspaces) == 0 {
		return lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render("no saved layout")
	}
	active := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	inactive := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	parts := make([]string, 0, len(m.workspaces))
	for i, id := range m.workspaces {
		if i == m.current {
			parts = append(parts, active.Render("["+id+"]"))
		} else {
			parts = append(parts, inactive.Render(id))
		}
	}
	return strings.Join(parts, " ")
}

func (m Model) footer() string {
	if m.statusMsg != "" {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
		if m.statusErr {
			style = style.Foreground(lipgloss.Color("9"))
		}
		return style.Render(m.statusMsg)
	}
	if !m.cfg.TUI.ShowHelp {
		return ""
	}
	return m.help.ShortHelpView(m.keys.ShortHelp())
}

// RunOptions configures the TUI.
type RunOptions struct {
	Config     *config.Config
	LayoutPath string
	Actions    Actions
	Logger     *slog.Logger
}

// Run starts the TUI and watches the layout file until the user quits.
func Run(opts RunOptions) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	load := func() *model.AppState {
		return store.ReadSnapshot(opts.LayoutPath, logger)
	}

	refresh := make(chan struct{}, 1)
	watcher, err := store.NewFileWatcher(opts.LayoutPath, func() {
		select {
		case refresh <- struct{}{}:
		default:
		}
	}, logger)
	if err != nil {
		logger.Warn("failed to create file watcher", "error", err)
	} else if err := watcher.Start(); err != nil {
		logger.Warn("failed to start file watcher", "error", err)
	}

	p := tea.NewProgram(New(opts.Config, load, opts.Actions, refresh), tea.WithAltScreen())
	_, err = p.Run()

	if watcher != nil {
		if stopErr := watcher.Stop(); stopErr != nil {
			logger.Debug("failed to stop file watcher", "error", stopErr)
		}
	}
	return err
}

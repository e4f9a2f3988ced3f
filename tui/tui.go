// ABOUTME: Terminal User Interface using bubbletea framework
// ABOUTME: Full-screen pipeline manager with tabs for every stage, goal, tasks, and activity
package tui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/agencycrm/store"
)

// ViewMode represents what has keyboard focus
type ViewMode int

const (
	ViewList ViewMode = iota
	ViewSearch
	ViewForm
	ViewConfirm
)

// Tab is one of the top-level screens
type Tab int

const (
	TabDashboard Tab = iota
	TabLeads
	TabSaved
	TabClients
	TabCustomers
	TabGoal
	TabTasks
	TabActivity
	tabCount
)

var tabNames = [tabCount]string{"Dashboard", "Leads", "Saved", "Clients", "Customers", "Goal", "Tasks", "Activity"}

func (t Tab) String() string {
	if t < 0 || t >= tabCount {
		return ""
	}
	return tabNames[t]
}

// snapshotMsg tells the model the store changed outside a command it started.
type snapshotMsg struct{}

// opDoneMsg reports a finished store operation.
type opDoneMsg struct {
	action string
	err    error
}

// noticeExpiredMsg clears the notice raised at the given time, if it is still showing.
type noticeExpiredMsg struct {
	at time.Time
}

// Model is the main bubbletea model
type Model struct {
	ctx    context.Context
	cancel context.CancelFunc
	st     *store.Store

	tab      Tab
	viewMode ViewMode

	table  table.Model
	rowIDs []string

	search      textinput.Model
	searchQuery string

	form    *form
	confirm *confirmation

	taskStatus string
	busy       string
	snap       store.Snapshot

	width  int
	height int
}

// New creates the model. Operations run with a context derived from ctx and
// cancelled when the user quits.
func New(ctx context.Context, st *store.Store) Model {
	ctx, cancel := context.WithCancel(ctx)

	search := textinput.New()
	search.Placeholder = "Search business name"
	search.CharLimit = 100

	m := Model{
		ctx:      ctx,
		cancel:   cancel,
		st:       st,
		tab:      TabDashboard,
		viewMode: ViewList,
		table:    table.New(table.WithFocused(true), table.WithStyles(tableStyles())),
		search:   search,
		width:    100,
		height:   30,
	}
	m.refresh()
	return m
}

// Run starts the full-screen program and blocks until the user quits.
func Run(ctx context.Context, st *store.Store) error {
	m := New(ctx, st)
	defer m.cancel()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	// Observers fire inside Update too, so the send must not block the event loop.
	unsubscribe := st.Subscribe(func(store.Snapshot) { go p.Send(snapshotMsg{}) })
	defer unsubscribe()

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func (m Model) Init() tea.Cmd {
	return m.noticeTimer()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetHeight(max(m.height-12, 5))
		return m, nil

	case snapshotMsg:
		m.refresh()
		return m, nil

	case opDoneMsg:
		m.busy = ""
		if msg.err != nil && !errors.Is(msg.err, context.Canceled) {
			if n := m.st.CurrentNotice(); n == nil || n.Level != store.LevelError {
				m.st.Notify(store.LevelError, capitalize(msg.err.Error()))
			}
		}
		m.refresh()
		return m, m.noticeTimer()

	case noticeExpiredMsg:
		if n := m.st.CurrentNotice(); n != nil && n.At.Equal(msg.at) {
			m.st.DismissNotice()
		}
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	}
	return m, nil
}

func (m Model) View() string {
	if m.snap.Celebrating {
		return m.renderCelebration()
	}

	var body string
	switch m.viewMode {
	case ViewForm:
		body = m.renderForm()
	case ViewConfirm:
		return m.renderConfirm()
	default:
		body = m.renderTab()
	}

	var s strings.Builder
	s.WriteString(titleStyle.Render("AGENCY CRM"))
	s.WriteString("\n")
	s.WriteString(m.renderTabs())
	s.WriteString("\n")
	if banner := m.renderBanner(); banner != "" {
		s.WriteString(banner)
		s.WriteString("\n")
	}
	s.WriteString("\n")
	s.WriteString(body)
	return s.String()
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.cancel()
		return m, tea.Quit
	}

	// Any key closes the celebration.
	if m.snap.Celebrating {
		m.st.DismissCelebration()
		m.refresh()
		return m, nil
	}

	switch m.viewMode {
	case ViewForm:
		return m.handleFormKeys(msg)
	case ViewConfirm:
		return m.handleConfirmKeys(msg)
	case ViewSearch:
		return m.handleSearchKeys(msg)
	}
	return m.handleListKeys(msg)
}

func (m Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		m.cancel()
		return m, tea.Quit
	case "tab", "right":
		return m.switchTab((m.tab + 1) % tabCount)
	case "shift+tab", "left":
		return m.switchTab((m.tab + tabCount - 1) % tabCount)
	case "1", "2", "3", "4", "5", "6", "7", "8":
		return m.switchTab(Tab(msg.String()[0] - '1'))
	case "r":
		return m.startOp("Syncing", func(ctx context.Context) error { return m.st.Reload(ctx) })
	case "esc":
		if m.st.CurrentNotice() != nil {
			m.st.DismissNotice()
			m.refresh()
		}
		return m, nil
	}

	if model, cmd, handled := m.handleTabKeys(msg); handled {
		return model, cmd
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.search.SetValue("")
		m.searchQuery = ""
		m.search.Blur()
		m.viewMode = ViewList
		m.refresh()
		return m, nil
	case "enter":
		m.search.Blur()
		m.viewMode = ViewList
		return m, nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.searchQuery = m.search.Value()
	m.refresh()
	return m, cmd
}

func (m Model) switchTab(t Tab) (tea.Model, tea.Cmd) {
	m.tab = t
	m.table.SetCursor(0)
	m.refresh()

	switch t {
	case TabTasks:
		return m.startOp("Loading tasks", func(ctx context.Context) error {
			_, err := m.st.LoadTasks(ctx)
			return err
		})
	case TabActivity:
		return m.startOp("Loading activity", func(ctx context.Context) error {
			_, err := m.st.LoadActivities(ctx, 0)
			return err
		})
	}
	return m, nil
}

// startOp runs fn as a command and marks the model busy until it reports back.
func (m Model) startOp(label string, fn func(ctx context.Context) error) (Model, tea.Cmd) {
	m.busy = label
	ctx := m.ctx
	return m, func() tea.Msg {
		return opDoneMsg{action: label, err: fn(ctx)}
	}
}

// noticeTimer schedules the current notice to clear after the store's TTL.
func (m Model) noticeTimer() tea.Cmd {
	n := m.st.CurrentNotice()
	if n == nil {
		return nil
	}
	at := n.At
	remaining := m.st.NoticeTTL() - m.st.Now().Sub(at)
	if remaining <= 0 {
		remaining = time.Millisecond
	}
	return tea.Tick(remaining, func(time.Time) tea.Msg { return noticeExpiredMsg{at: at} })
}

// refresh re-reads the store and rebuilds the table for the current tab.
func (m *Model) refresh() {
	m.snap = m.st.Snapshot()
	cols, rows, ids := m.tableData()

	cursor := m.table.Cursor()
	m.table.SetRows(nil)
	m.table.SetColumns(cols)
	m.table.SetRows(rows)
	m.rowIDs = ids
	if cursor >= len(rows) {
		cursor = max(len(rows)-1, 0)
	}
	m.table.SetCursor(cursor)
}

// selectedID is the id of the highlighted row, or "".
func (m Model) selectedID() string {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.rowIDs) {
		return ""
	}
	return m.rowIDs[i]
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170"))

	tabActiveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			Background(lipgloss.Color("235")).
			Padding(0, 2)

	tabInactiveStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Padding(0, 2)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			MarginTop(1)

	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Italic(true)
)

func tableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57"))
	return s
}

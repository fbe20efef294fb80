// Package ui is the terminal browser for the local checkpoint audit log:
// a filterable list of this machine's checkpoints and rollups with a
// rendered markdown detail pane.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"remem/internal/ingest"
	"remem/internal/types"
)

const (
	minListHeight  = 4
	chromeHeight   = 4
	detailChrome   = 3
	timestampLabel = "Jan 02 15:04"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	kindStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	rollupStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	dimStyle      = lipgloss.NewStyle().Faint(true)
)

// Entry is one audit-log record flattened for display.
type Entry struct {
	Title   string
	Project string
	Session string
	Kind    string
	Rollup  bool
	Time    time.Time
	Content string
}

// EntriesFromRecords flattens audit records newest-first, skipping
// records without a document payload.
func EntriesFromRecords(records []types.AuditRecord) []Entry {
	entries := make([]Entry, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		record := records[i]
		doc := record.Payload
		if doc == nil {
			continue
		}
		entry := Entry{
			Title:   doc.Title,
			Rollup:  record.Event == types.AuditEventRollup,
			Time:    time.Unix(int64(record.Timestamp), 0),
			Content: doc.Content,
		}
		if meta := doc.Metadata; meta != nil {
			entry.Project, _ = meta["project"].(string)
			entry.Session, _ = meta["session_id"].(string)
			entry.Kind, _ = meta["checkpoint_kind"].(string)
		}
		entries = append(entries, entry)
	}
	return entries
}

func (e Entry) label() string {
	if e.Rollup {
		return "rollup"
	}
	if e.Kind != "" {
		return e.Kind
	}
	return "checkpoint"
}

func (e Entry) matches(query string) bool {
	if query == "" {
		return true
	}
	haystack := strings.ToLower(strings.Join([]string{e.Title, e.Project, e.Session, e.label()}, " "))
	for _, term := range strings.Fields(strings.ToLower(query)) {
		if !strings.Contains(haystack, term) {
			return false
		}
	}
	return true
}

type uiMode int

const (
	modeList uiMode = iota
	modeDetail
	modeFilter
)

type Model struct {
	entries []Entry
	visible []int
	cursor  int
	mode    uiMode

	filter   textinput.Model
	viewport viewport.Model

	width  int
	height int
	status string

	copyText func(string) error
}

func NewModel(entries []Entry) *Model {
	filter := textinput.New()
	filter.Placeholder = "project, session, kind..."
	filter.Prompt = "/"
	filter.CharLimit = 120

	vp := viewport.New(80, 20)

	m := &Model{
		entries:  entries,
		filter:   filter,
		viewport: vp,
		width:    80,
		height:   24,
		copyText: copyTextToClipboard,
	}
	m.applyFilter()
	return m
}

func (m *Model) Init() tea.Cmd {
	return nil
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.mode {
	case modeFilter:
		switch msg.String() {
		case "esc":
			m.filter.SetValue("")
			m.filter.Blur()
			m.mode = modeList
			m.applyFilter()
			return m, nil
		case "enter":
			m.filter.Blur()
			m.mode = modeList
			return m, nil
		}
		var cmd tea.Cmd
		m.filter, cmd = m.filter.Update(msg)
		m.applyFilter()
		return m, cmd
	case modeDetail:
		switch msg.String() {
		case "q", "esc":
			m.mode = modeList
			m.status = ""
			return m, nil
		case "c", "y":
			m.copySelected()
			return m, nil
		case "ctrl+c":
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.visible)-1 {
			m.cursor++
		}
	case "g", "home":
		m.cursor = 0
	case "G", "end":
		if len(m.visible) > 0 {
			m.cursor = len(m.visible) - 1
		}
	case "/":
		m.mode = modeFilter
		m.filter.Focus()
	case "c", "y":
		m.copySelected()
	case "enter":
		if entry, ok := m.selected(); ok {
			m.openDetail(entry)
		}
	}
	return m, nil
}

func (m *Model) resize(width, height int) {
	if width > 0 {
		m.width = width
	}
	if height > 0 {
		m.height = height
	}
	m.viewport.Width = m.width
	m.viewport.Height = max(1, m.height-detailChrome)
	if entry, ok := m.selected(); ok && m.mode == modeDetail {
		m.viewport.SetContent(renderMarkdown(entry.Content, m.viewport.Width))
	}
}

func (m *Model) applyFilter() {
	query := m.filter.Value()
	m.visible = m.visible[:0]
	for i, entry := range m.entries {
		if entry.matches(query) {
			m.visible = append(m.visible, i)
		}
	}
	if m.cursor >= len(m.visible) {
		m.cursor = max(0, len(m.visible)-1)
	}
}

func (m *Model) selected() (Entry, bool) {
	if m.cursor < 0 || m.cursor >= len(m.visible) {
		return Entry{}, false
	}
	return m.entries[m.visible[m.cursor]], true
}

func (m *Model) openDetail(entry Entry) {
	m.mode = modeDetail
	m.viewport.SetContent(renderMarkdown(entry.Content, m.viewport.Width))
	m.viewport.GotoTop()
	m.status = ""
}

func (m *Model) copySelected() {
	entry, ok := m.selected()
	if !ok {
		m.status = "nothing to copy"
		return
	}
	if err := m.copyText(entry.Content); err != nil {
		m.status = "copy failed: " + err.Error()
		return
	}
	m.status = "copied checkpoint markdown"
}

func (m *Model) View() string {
	if m.mode == modeDetail {
		return m.detailView()
	}
	return m.listView()
}

func (m *Model) listView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("remem sessions — %d records", len(m.visible))))
	b.WriteString("\n")
	if m.mode == modeFilter || m.filter.Value() != "" {
		b.WriteString(m.filter.View())
		b.WriteString("\n")
	}

	rows := max(minListHeight, m.height-chromeHeight)
	start := 0
	if m.cursor >= rows {
		start = m.cursor - rows + 1
	}
	if len(m.visible) == 0 {
		b.WriteString(dimStyle.Render("no checkpoints recorded yet"))
		b.WriteString("\n")
	}
	for i := start; i < len(m.visible) && i < start+rows; i++ {
		entry := m.entries[m.visible[i]]
		line := m.rowView(entry, i == m.cursor)
		b.WriteString(line)
		b.WriteString("\n")
	}

	hint := "enter: view  /: filter  c: copy  q: quit"
	if m.status != "" {
		hint = m.status
	}
	b.WriteString(dimStyle.Render(hint))
	return b.String()
}

func (m *Model) rowView(entry Entry, selected bool) string {
	label := entry.label()
	labelView := kindStyle.Render(fmt.Sprintf("%-9s", label))
	if entry.Rollup {
		labelView = rollupStyle.Render(fmt.Sprintf("%-9s", label))
	}
	stamp := entry.Time.Format(timestampLabel)
	title := entry.Title
	budget := m.width - len(timestampLabel) - 14
	if budget > 0 {
		title = runewidth.Truncate(title, budget, "...")
	}
	row := fmt.Sprintf("%s  %s %s", stamp, labelView, title)
	if selected {
		return selectedStyle.Render("> ") + row
	}
	return "  " + row
}

func (m *Model) detailView() string {
	entry, _ := m.selected()
	var b strings.Builder
	b.WriteString(titleStyle.Render(entry.Title))
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	hint := "esc: back  c: copy  q: list"
	if m.status != "" {
		hint = m.status
	}
	b.WriteString(dimStyle.Render(hint))
	return b.String()
}

// Run loads the audit log and blocks inside the browser until quit.
func Run(logPath string) error {
	records, err := ingest.NewAuditLog(logPath).ReadAll()
	if err != nil {
		return fmt.Errorf("read checkpoint log: %w", err)
	}
	model := NewModel(EntriesFromRecords(records))
	program := tea.NewProgram(model, tea.WithAltScreen())
	_, err = program.Run()
	return err
}

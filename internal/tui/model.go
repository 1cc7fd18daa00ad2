// Package tui is the terminal dashboard.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jetsetgo/printdesk/internal/models"
	"github.com/jetsetgo/printdesk/internal/render"
)

var (
	baseStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240"))
	tableStyle = lipgloss.NewStyle().
			Margin(0, 0, 1, 0)
	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))
	emptyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Padding(1, 2)
	noticeStyles = map[string]lipgloss.Style{
		"success": lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		"error":   lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		"info":    lipgloss.NewStyle().Foreground(lipgloss.Color("63")),
	}
	statusStyles = map[models.ConnectionState]lipgloss.Style{
		models.StateConnected:    lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		models.StateConnecting:   lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		models.StateDisconnected: lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
)

var keys = struct {
	Print   key.Binding
	Delete  key.Binding
	Confirm key.Binding
	Clean   key.Binding
	Refresh key.Binding
	Quit    key.Binding
}{
	Print:   key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "print")),
	Delete:  key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
	Confirm: key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "confirm")),
	Clean:   key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clean printed")),
	Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	Quit:    key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q/esc", "quit")),
}

// Actions are the dashboard operations reachable from the keyboard
type Actions interface {
	Print(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	CleanPrinted(ctx context.Context) (int, error)
	Refresh(ctx context.Context) error
}

type viewMsg render.View

type actionDoneMsg struct {
	what string
	err  error
}

// Model is the bubbletea model of the terminal dashboard
type Model struct {
	ctx     context.Context
	actions Actions
	views   <-chan render.View

	view    render.View
	table   table.Model
	rowIDs  []string // file id per table row, "" for folder headers
	busy    string
	confirm string // file id awaiting delete confirmation
	err     error
}

// New creates the model. views is typically dashboard.Controller.Subscribe.
func New(ctx context.Context, actions Actions, views <-chan render.View) Model {
	columns := []table.Column{
		{Title: "File", Width: 40},
		{Title: "Size", Width: 10},
		{Title: "Kind", Width: 12},
		{Title: "Uploaded", Width: 18},
		{Title: "Status", Width: 9},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(15),
	)

	return Model{ctx: ctx, actions: actions, views: views, table: t}
}

// Run starts the terminal dashboard and blocks until the user quits or ctx
// is done
func Run(ctx context.Context, actions Actions, views <-chan render.View) error {
	p := tea.NewProgram(New(ctx, actions, views), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}

func (m Model) Init() tea.Cmd {
	return waitForView(m.views)
}

func waitForView(views <-chan render.View) tea.Cmd {
	return func() tea.Msg {
		v, ok := <-views
		if !ok {
			return nil
		}
		return viewMsg(v)
	}
}

func (m Model) run(what string, fn func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return actionDoneMsg{what: what, err: fn(ctx)}
	}
}

// selected returns the file id under the cursor
func (m Model) selected() string {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.rowIDs) {
		return ""
	}
	return m.rowIDs[i]
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case viewMsg:
		m.view = render.View(msg)
		m.updateTable()
		return m, waitForView(m.views)

	case actionDoneMsg:
		m.busy = ""
		m.err = msg.err
		return m, nil

	case tea.KeyMsg:
		if m.confirm != "" {
			id := m.confirm
			m.confirm = ""
			if key.Matches(msg, keys.Confirm) {
				m.busy = "Deleting..."
				return m, m.run("delete", func(ctx context.Context) error {
					return m.actions.Delete(ctx, id)
				})
			}
			return m, nil
		}

		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Print):
			id := m.selected()
			if id == "" {
				m.err = errors.New("select a file to print")
				return m, nil
			}
			m.busy = "Printing..."
			return m, m.run("print", func(ctx context.Context) error {
				return m.actions.Print(ctx, id)
			})
		case key.Matches(msg, keys.Delete):
			if id := m.selected(); id != "" {
				m.confirm = id
			}
			return m, nil
		case key.Matches(msg, keys.Clean):
			m.busy = "Cleaning printed files..."
			return m, m.run("clean", func(ctx context.Context) error {
				_, err := m.actions.CleanPrinted(ctx)
				return err
			})
		case key.Matches(msg, keys.Refresh):
			m.busy = "Refreshing..."
			return m, m.run("refresh", m.actions.Refresh)
		}

		m.table, cmd = m.table.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.table.SetWidth(msg.Width - 2)
		m.table.SetHeight(max(msg.Height-10, 3))
		return m, nil
	}

	return m, nil
}

func (m *Model) updateTable() {
	rows := []table.Row{}
	m.rowIDs = nil

	for _, folder := range m.view.Folders {
		rows = append(rows, table.Row{"▸ " + folder.Name + " (" + folder.Summary + ")", "", "", "", ""})
		m.rowIDs = append(m.rowIDs, "")
		for _, c := range folder.Cards {
			rows = append(rows, table.Row{"  " + c.Name, c.Size, c.Kind, c.Uploaded, c.Badge})
			m.rowIDs = append(m.rowIDs, c.ID)
		}
	}

	m.table.SetRows(rows)
	if m.table.Cursor() >= len(rows) && len(rows) > 0 {
		m.table.SetCursor(len(rows) - 1)
	}
}

func (m Model) View() string {
	var b strings.Builder

	st, ok := statusStyles[m.view.Status.State]
	if !ok {
		st = statusStyles[models.StateDisconnected]
	}
	b.WriteString(st.Render("● " + m.view.Status.Label))
	b.WriteString(fmt.Sprintf("   %d folders  %d files  %d printed\n",
		m.view.Stats.Folders, m.view.Stats.Files, m.view.Stats.Printed))

	if m.view.LoginRequired {
		b.WriteString(noticeStyles["error"].Render(`Session expired. Run "printdesk login" and restart.`))
		b.WriteString("\n")
	}
	for _, n := range m.view.Notices {
		style, ok := noticeStyles[n.Level]
		if !ok {
			style = noticeStyles["info"]
		}
		b.WriteString(style.Render(n.Text))
		b.WriteString("\n")
	}

	if m.view.Empty != nil {
		b.WriteString(emptyStyle.Render(m.view.Empty.Title + "\n" + m.view.Empty.Hint))
		b.WriteString("\n")
	} else {
		b.WriteString(tableStyle.Render(m.table.View()))
	}

	switch {
	case m.confirm != "":
		b.WriteString("Delete this file? y to confirm, any other key to cancel\n")
	case m.busy != "":
		b.WriteString(m.busy + "\n")
	case m.err != nil:
		b.WriteString(fmt.Sprintf("Error: %v\n", m.err))
	}

	help := []string{}
	for _, k := range []key.Binding{keys.Print, keys.Delete, keys.Clean, keys.Refresh, keys.Quit} {
		h := k.Help()
		help = append(help, h.Key+" "+h.Desc)
	}

	return baseStyle.Render(
		lipgloss.JoinVertical(
			lipgloss.Left,
			b.String(),
			helpStyle.Render(strings.Join(help, " • ")),
		),
	)
}

// Package ui provides the terminal interface for the todo list.
package ui

import (
	"context"
	"fmt"
	"strings"

	"todo-app/src/controller"
	"todo-app/src/domain"
	"todo-app/src/usecase"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// RunTUI starts the terminal UI and blocks until the user quits or ctx is done.
func RunTUI(ctx context.Context, ctrl *controller.TodoController) error {
	model := NewModel(ctx, ctrl)
	defer model.Close()
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

type mode int

const (
	modeList mode = iota
	modeSearch
	modeForm
	modeConfirm
)

const (
	fieldTitle = iota
	fieldDescription
	fieldPriority
	fieldCount
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	errorStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	itemErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	cursorStyle    = lipgloss.NewStyle().Bold(true)
	doneStyle      = lipgloss.NewStyle().Strikethrough(true).Foreground(lipgloss.Color("8"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	promptStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
)

type stateMsg controller.State

type stateClosedMsg struct{}

type actionDoneMsg struct {
	status string
	err    error
	// form marks the result of a form submission.
	form bool
}

// Model is the bubbletea model for the todo list.
type Model struct {
	ctx    context.Context
	ctrl   *controller.TodoController
	states <-chan controller.State
	cancel func()

	state  controller.State
	cursor int
	mode   mode
	status string

	search textinput.Model

	form      [fieldCount]textinput.Model
	formFocus int
	editingID string
	saving    bool

	confirmPrompt string
	confirmAction tea.Cmd
}

// NewModel creates a model that follows the controller's state.
func NewModel(ctx context.Context, ctrl *controller.TodoController) *Model {
	states, cancel := ctrl.Subscribe()

	search := textinput.New()
	search.Prompt = "/ "
	search.Placeholder = "search title or description"
	search.CharLimit = domain.MaxTitleLength

	m := &Model{
		ctx:    ctx,
		ctrl:   ctrl,
		states: states,
		cancel: cancel,
		state:  ctrl.State(),
		search: search,
	}
	for i := range m.form {
		in := textinput.New()
		switch i {
		case fieldTitle:
			in.Prompt = "Title:       "
			in.CharLimit = domain.MaxTitleLength
		case fieldDescription:
			in.Prompt = "Description: "
			in.CharLimit = domain.MaxDescriptionLength
		case fieldPriority:
			in.Prompt = "Priority:    "
			in.Placeholder = "low / medium / high"
			in.CharLimit = 6
		}
		m.form[i] = in
	}
	return m
}

// Close stops following controller updates.
func (m *Model) Close() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.run("", func(ctx context.Context) error {
		return m.ctrl.Load(ctx)
	}), waitForState(m.states))
}

func waitForState(ch <-chan controller.State) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		s, ok := <-ch
		if !ok {
			return stateClosedMsg{}
		}
		return stateMsg(s)
	}
}

// run executes fn against the controller off the UI goroutine.
func (m *Model) run(status string, fn func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return actionDoneMsg{status: status, err: fn(ctx)}
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case stateMsg:
		m.setState(controller.State(msg))
		return m, waitForState(m.states)
	case stateClosedMsg:
		return m, nil
	case actionDoneMsg:
		m.setState(m.ctrl.State())
		if msg.err == nil {
			m.status = msg.status
		} else {
			m.status = ""
		}
		if msg.form {
			m.saving = false
			// 失敗時は入力内容を残したままフォームを開いておく
			if msg.err == nil && m.mode == modeForm {
				m.closeForm()
			}
		}
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		switch m.mode {
		case modeSearch:
			return m.updateSearch(msg)
		case modeForm:
			return m.updateForm(msg)
		case modeConfirm:
			return m.updateConfirm(msg)
		default:
			return m.updateList(msg)
		}
	}
	return m, nil
}

func (m *Model) setState(s controller.State) {
	m.state = s
	if m.cursor >= len(s.Todos) {
		m.cursor = len(s.Todos) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *Model) selected() (domain.Todo, bool) {
	if m.cursor < 0 || m.cursor >= len(m.state.Todos) {
		return domain.Todo{}, false
	}
	return m.state.Todos[m.cursor], true
}

func (m *Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.state.Todos)-1 {
			m.cursor++
		}
	case "1", "2", "3":
		scope := map[string]domain.StatusScope{
			"1": domain.ScopeAll,
			"2": domain.ScopeActive,
			"3": domain.ScopeCompleted,
		}[msg.String()]
		filter := m.state.Filter
		filter.Scope = scope
		return m, m.run("", func(ctx context.Context) error {
			return m.ctrl.SetFilter(ctx, filter)
		})
	case "/":
		m.mode = modeSearch
		m.search.SetValue(m.state.Filter.SearchQuery)
		m.search.CursorEnd()
		return m, m.search.Focus()
	case "s":
		next := m.state.Sort.Next()
		return m, m.run("sorted by "+next.String(), func(ctx context.Context) error {
			return m.ctrl.SetSort(ctx, next)
		})
	case "r":
		return m, m.run("", m.ctrl.Refresh)
	case "n":
		return m, m.openForm(nil)
	case "e":
		if t, ok := m.selected(); ok {
			return m, m.openForm(&t)
		}
	case " ":
		if t, ok := m.selected(); ok {
			id := t.ID
			return m, m.run("", func(ctx context.Context) error {
				_, err := m.ctrl.ToggleCompleted(ctx, id)
				return err
			})
		}
	case "d":
		if t, ok := m.selected(); ok {
			id := t.ID
			m.confirm(fmt.Sprintf("Delete %q?", t.Title), m.run("deleted", func(ctx context.Context) error {
				return m.ctrl.DeleteTodo(ctx, id)
			}))
		}
	case "C":
		if m.state.CompletedCount > 0 {
			m.confirm(fmt.Sprintf("Clear %d completed todos?", m.state.CompletedCount), func() tea.Msg {
				n, err := m.ctrl.ClearCompleted(m.ctx)
				return actionDoneMsg{status: fmt.Sprintf("cleared %d completed", n), err: err}
			})
		}
	case "A":
		if m.state.ActiveCount+m.state.CompletedCount > 0 {
			completed := m.state.ActiveCount > 0
			prompt := "Mark all todos as completed?"
			if !completed {
				prompt = "Mark all todos as active?"
			}
			m.confirm(prompt, func() tea.Msg {
				changed, err := m.ctrl.MarkAllCompleted(m.ctx, completed)
				return actionDoneMsg{status: fmt.Sprintf("updated %d", len(changed)), err: err}
			})
		}
	}
	return m, nil
}

func (m *Model) confirm(prompt string, action tea.Cmd) {
	m.mode = modeConfirm
	m.confirmPrompt = prompt
	m.confirmAction = action
}

func (m *Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	action := m.confirmAction
	m.mode = modeList
	m.confirmPrompt = ""
	m.confirmAction = nil
	switch msg.String() {
	case "y", "Y":
		return m, action
	}
	m.status = "cancelled"
	return m, nil
}

func (m *Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = modeList
		m.search.Blur()
		return m, nil
	case tea.KeyEnter:
		m.mode = modeList
		m.search.Blur()
		filter := m.state.Filter
		filter.SearchQuery = strings.TrimSpace(m.search.Value())
		return m, m.run("", func(ctx context.Context) error {
			return m.ctrl.SetFilter(ctx, filter)
		})
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

// openForm shows the new-item form, or the edit form when t is set.
func (m *Model) openForm(t *domain.Todo) tea.Cmd {
	m.mode = modeForm
	m.editingID = ""
	m.saving = false
	for i := range m.form {
		m.form[i].SetValue("")
	}
	m.form[fieldPriority].SetValue(string(domain.PriorityMedium))
	if t != nil {
		m.editingID = t.ID
		m.form[fieldTitle].SetValue(t.Title)
		if t.Description != nil {
			m.form[fieldDescription].SetValue(*t.Description)
		}
		m.form[fieldPriority].SetValue(string(t.Priority))
	}
	return m.focusField(fieldTitle)
}

func (m *Model) focusField(i int) tea.Cmd {
	m.formFocus = i
	var cmd tea.Cmd
	for j := range m.form {
		if j == i {
			cmd = m.form[j].Focus()
			m.form[j].CursorEnd()
		} else {
			m.form[j].Blur()
		}
	}
	return cmd
}

func (m *Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.closeForm()
		return m, nil
	case tea.KeyTab, tea.KeyDown:
		return m, m.focusField((m.formFocus + 1) % fieldCount)
	case tea.KeyShiftTab, tea.KeyUp:
		return m, m.focusField((m.formFocus + fieldCount - 1) % fieldCount)
	case tea.KeyEnter:
		if m.saving {
			return m, nil
		}
		m.saving = true
		return m, m.submitForm()
	}
	var cmd tea.Cmd
	m.form[m.formFocus], cmd = m.form[m.formFocus].Update(msg)
	return m, cmd
}

func (m *Model) closeForm() {
	m.mode = modeList
	m.editingID = ""
	for i := range m.form {
		m.form[i].SetValue("")
		m.form[i].Blur()
	}
}

func (m *Model) submitForm() tea.Cmd {
	title := m.form[fieldTitle].Value()
	description := m.form[fieldDescription].Value()
	priority := strings.ToLower(strings.TrimSpace(m.form[fieldPriority].Value()))

	if m.editingID == "" {
		req := usecase.CreateTodoRequest{Title: title, Description: description, Priority: priority}
		return m.runForm("added", func(ctx context.Context) error {
			_, err := m.ctrl.AddTodo(ctx, req)
			return err
		})
	}

	id := m.editingID
	req := usecase.UpdateTodoRequest{Title: &title, Description: &description, Priority: &priority}
	return m.runForm("saved", func(ctx context.Context) error {
		_, err := m.ctrl.UpdateTodo(ctx, id, req)
		return err
	})
}

func (m *Model) runForm(status string, fn func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return actionDoneMsg{status: status, err: fn(ctx), form: true}
	}
}

func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Todos") + "\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("%d active  %d completed  scope: %s  sort: %s",
		m.state.ActiveCount, m.state.CompletedCount, m.state.Filter.Scope, m.state.Sort)))
	if q := m.state.Filter.SearchQuery; q != "" {
		b.WriteString(dimStyle.Render(fmt.Sprintf("  search: %q", q)))
	}
	b.WriteString("\n\n")

	if m.state.ErrMessage != "" {
		b.WriteString(errorStyle.Render("Error: "+m.state.ErrMessage) + "\n\n")
	}

	switch m.mode {
	case modeForm:
		writeForm(&b, m)
		return b.String()
	case modeSearch:
		b.WriteString(m.search.View() + "\n\n")
	}

	writeTodos(&b, m)

	switch {
	case m.mode == modeConfirm:
		b.WriteString("\n" + promptStyle.Render(m.confirmPrompt+" (y/n)") + "\n")
	case m.state.Loading():
		b.WriteString("\n" + dimStyle.Render("Loading...") + "\n")
	case m.status != "":
		b.WriteString("\n" + dimStyle.Render(m.status) + "\n")
	}

	b.WriteString("\n" + dimStyle.Render(
		"1/2/3 scope  / search  s sort  n new  e edit  space toggle  d delete  C clear done  A mark all  r refresh  q quit") + "\n")
	return b.String()
}

func writeTodos(b *strings.Builder, m *Model) {
	if len(m.state.Todos) == 0 {
		if m.state.Phase == controller.PhaseIdle || m.state.Loading() {
			return
		}
		b.WriteString(dimStyle.Render("  No todos") + "\n")
		return
	}
	for i, t := range m.state.Todos {
		b.WriteString(formatTodo(t, i == m.cursor))
		if msg, ok := m.state.ItemErrors[t.ID]; ok {
			b.WriteString("  " + itemErrorStyle.Render("! "+msg))
		}
		b.WriteString("\n")
	}
}

func formatTodo(t domain.Todo, selected bool) string {
	check := "[ ]"
	if t.Completed {
		check = "[x]"
	}
	title := t.Title
	if t.Completed {
		title = doneStyle.Render(title)
	}
	line := fmt.Sprintf("%s %s %s", check, priorityBadge(t.Priority), title)
	if t.Description != nil {
		line += dimStyle.Render("  " + *t.Description)
	}
	if selected {
		return cursorStyle.Render("> ") + line
	}
	return "  " + line
}

func priorityBadge(p domain.Priority) string {
	switch p {
	case domain.PriorityHigh:
		return "!!!"
	case domain.PriorityLow:
		return "  ."
	default:
		return " !!"
	}
}

func writeForm(b *strings.Builder, m *Model) {
	heading := "New todo"
	if m.editingID != "" {
		heading = "Edit todo"
	}
	b.WriteString(titleStyle.Render(heading) + "\n\n")
	for i := range m.form {
		b.WriteString(m.form[i].View() + "\n")
	}
	if m.saving {
		b.WriteString("\n" + dimStyle.Render("Saving...") + "\n")
	}
	b.WriteString("\n" + dimStyle.Render("tab next field  enter save  esc cancel") + "\n")
}

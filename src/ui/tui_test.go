package ui_test

import (
	"context"
	"io"
	"testing"

	"todo-app/src/controller"
	"todo-app/src/infrastructure/repository"
	"todo-app/src/ui"
	"todo-app/src/usecase"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newModel(t *testing.T) (*ui.Model, *controller.TodoController) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	svc := usecase.NewTodoUsecase(repository.NewMemoryTodoRepository(), nil)
	ctrl := controller.NewTodoController(svc, log)
	require.NoError(t, ctrl.Load(context.Background()))

	m := ui.NewModel(context.Background(), ctrl)
	t.Cleanup(m.Close)
	return m, ctrl
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press sends a key and discards any follow-up command.
func press(m *ui.Model, msg tea.KeyMsg) {
	m.Update(msg)
}

// act sends a key that triggers a controller call and feeds the result back.
func act(t *testing.T, m *ui.Model, msg tea.KeyMsg) {
	t.Helper()
	_, cmd := m.Update(msg)
	require.NotNil(t, cmd)
	m.Update(cmd())
}

func addTodo(t *testing.T, m *ui.Model, title string) {
	t.Helper()
	press(m, runes("n"))
	press(m, runes(title))
	act(t, m, tea.KeyMsg{Type: tea.KeyEnter})
}

func TestModel_AddAndToggle(t *testing.T) {
	m, ctrl := newModel(t)

	addTodo(t, m, "Buy milk")

	state := ctrl.State()
	require.Len(t, state.Todos, 1)
	assert.Equal(t, "Buy milk", state.Todos[0].Title)
	assert.Contains(t, m.View(), "Buy milk")
	assert.Contains(t, m.View(), "1 active  0 completed")

	act(t, m, runes(" "))
	state = ctrl.State()
	assert.True(t, state.Todos[0].Completed)
	assert.Contains(t, m.View(), "[x]")
}

func TestModel_EmptyTitleShowsBanner(t *testing.T) {
	m, ctrl := newModel(t)

	press(m, runes("n"))
	act(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Empty(t, ctrl.State().Todos)
	assert.Contains(t, m.View(), "Error: title is required")
}

func TestModel_EditTodo(t *testing.T) {
	m, ctrl := newModel(t)
	addTodo(t, m, "Buy milk")

	press(m, runes("e"))
	press(m, runes(" today"))
	act(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	state := ctrl.State()
	require.Len(t, state.Todos, 1)
	assert.Equal(t, "Buy milk today", state.Todos[0].Title)
	assert.NotContains(t, m.View(), "Edit todo")
}

func TestModel_FailedSaveKeepsForm(t *testing.T) {
	t.Run("編集の失敗で入力内容が残る", func(t *testing.T) {
		m, ctrl := newModel(t)
		addTodo(t, m, "Buy milk")

		press(m, runes("e"))
		press(m, tea.KeyMsg{Type: tea.KeyCtrlU})
		press(m, tea.KeyMsg{Type: tea.KeyTab})
		press(m, runes("half-typed note"))
		act(t, m, tea.KeyMsg{Type: tea.KeyEnter})

		state := ctrl.State()
		require.Len(t, state.Todos, 1)
		assert.Equal(t, "Buy milk", state.Todos[0].Title)
		assert.Nil(t, state.Todos[0].Description)

		view := m.View()
		assert.Contains(t, view, "Edit todo")
		assert.Contains(t, view, "half-typed note")
		assert.Contains(t, view, "Error: title is required")

		// タイトルを直して再送信すると閉じる
		press(m, tea.KeyMsg{Type: tea.KeyShiftTab})
		press(m, runes("Buy oat milk"))
		act(t, m, tea.KeyMsg{Type: tea.KeyEnter})

		state = ctrl.State()
		assert.Equal(t, "Buy oat milk", state.Todos[0].Title)
		require.NotNil(t, state.Todos[0].Description)
		assert.Equal(t, "half-typed note", *state.Todos[0].Description)
		assert.NotContains(t, m.View(), "Edit todo")
	})

	t.Run("新規作成の失敗でフォームが残る", func(t *testing.T) {
		m, ctrl := newModel(t)

		press(m, runes("n"))
		press(m, tea.KeyMsg{Type: tea.KeyTab})
		press(m, runes("no title yet"))
		act(t, m, tea.KeyMsg{Type: tea.KeyEnter})

		assert.Empty(t, ctrl.State().Todos)
		assert.Contains(t, m.View(), "New todo")
		assert.Contains(t, m.View(), "no title yet")

		press(m, tea.KeyMsg{Type: tea.KeyEsc})
		assert.NotContains(t, m.View(), "New todo")
		assert.NotContains(t, m.View(), "no title yet")
	})
}

func TestModel_ConfirmPrompts(t *testing.T) {
	t.Run("削除はyで実行", func(t *testing.T) {
		m, ctrl := newModel(t)
		addTodo(t, m, "Buy milk")

		press(m, runes("d"))
		assert.Contains(t, m.View(), `Delete "Buy milk"? (y/n)`)
		act(t, m, runes("y"))

		assert.Empty(t, ctrl.State().Todos)
	})

	t.Run("y以外はキャンセル", func(t *testing.T) {
		m, ctrl := newModel(t)
		addTodo(t, m, "Buy milk")

		press(m, runes("d"))
		_, cmd := m.Update(runes("n"))
		assert.Nil(t, cmd)

		assert.Len(t, ctrl.State().Todos, 1)
		assert.Contains(t, m.View(), "cancelled")
	})

	t.Run("完了済みの一括削除", func(t *testing.T) {
		m, ctrl := newModel(t)
		addTodo(t, m, "Buy milk")
		addTodo(t, m, "Buy eggs")
		act(t, m, runes(" "))

		press(m, runes("C"))
		act(t, m, runes("y"))

		state := ctrl.State()
		assert.Len(t, state.Todos, 1)
		assert.Equal(t, 0, state.CompletedCount)
		assert.Contains(t, m.View(), "cleared 1 completed")
	})
}

func TestModel_MarkAll(t *testing.T) {
	m, ctrl := newModel(t)
	addTodo(t, m, "Buy milk")
	addTodo(t, m, "Buy eggs")

	press(m, runes("A"))
	assert.Contains(t, m.View(), "Mark all todos as completed?")
	act(t, m, runes("y"))
	assert.Equal(t, 2, ctrl.State().CompletedCount)

	press(m, runes("A"))
	assert.Contains(t, m.View(), "Mark all todos as active?")
	act(t, m, runes("y"))
	assert.Equal(t, 2, ctrl.State().ActiveCount)
}

func TestModel_ScopeAndSearch(t *testing.T) {
	m, ctrl := newModel(t)
	addTodo(t, m, "Buy milk")
	addTodo(t, m, "Buy eggs")
	act(t, m, runes(" "))

	act(t, m, runes("2"))
	state := ctrl.State()
	require.Len(t, state.Todos, 1)
	assert.False(t, state.Todos[0].Completed)

	act(t, m, runes("1"))
	press(m, runes("/"))
	press(m, runes("egg"))
	act(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	state = ctrl.State()
	require.Len(t, state.Todos, 1)
	assert.Equal(t, "Buy eggs", state.Todos[0].Title)
	assert.Contains(t, m.View(), `search: "egg"`)
}

func TestModel_CycleSort(t *testing.T) {
	m, ctrl := newModel(t)
	before := ctrl.State().Sort

	act(t, m, runes("s"))

	assert.Equal(t, before.Next(), ctrl.State().Sort)
}

func TestModel_Quit(t *testing.T) {
	m, _ := newModel(t)

	_, cmd := m.Update(runes("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

package handler_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"todo-app/src/domain"
	"todo-app/src/interface/handler"
	"todo-app/src/usecase"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockTodoUsecase は usecase.TodoUsecase のモック実装
type MockTodoUsecase struct {
	mock.Mock
}

func (m *MockTodoUsecase) CreateTodo(ctx context.Context, req usecase.CreateTodoRequest) (*domain.Todo, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Todo), args.Error(1)
}

func (m *MockTodoUsecase) GetTodo(ctx context.Context, id string) (*domain.Todo, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Todo), args.Error(1)
}

func (m *MockTodoUsecase) GetAllTodos(ctx context.Context) ([]domain.Todo, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Todo), args.Error(1)
}

func (m *MockTodoUsecase) UpdateTodo(ctx context.Context, id string, req usecase.UpdateTodoRequest) (*domain.Todo, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Todo), args.Error(1)
}

func (m *MockTodoUsecase) DeleteTodo(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockTodoUsecase) ToggleCompleted(ctx context.Context, id string) (*domain.Todo, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Todo), args.Error(1)
}

func (m *MockTodoUsecase) FilterTodos(ctx context.Context, filter domain.TodoFilter) ([]domain.Todo, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Todo), args.Error(1)
}

func (m *MockTodoUsecase) GetActiveCount(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockTodoUsecase) GetCompletedCount(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockTodoUsecase) ClearCompleted(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockTodoUsecase) MarkAllCompleted(ctx context.Context, completed bool) ([]domain.Todo, error) {
	args := m.Called(ctx, completed)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Todo), args.Error(1)
}

func newEngine(uc usecase.TodoUsecase) *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := logrus.New()
	log.SetOutput(io.Discard)

	h := handler.NewTodoHandler(uc, nil, log)
	r := gin.New()
	r.GET("/api/todos", h.ListTodos)
	r.GET("/api/todos/counts", h.GetCounts)
	r.POST("/api/todos", h.CreateTodo)
	return r
}

func TestTodoHandler_ErrorStatus(t *testing.T) {
	tests := []struct {
		name       string
		mockSetup  func(*MockTodoUsecase)
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{
			name: "store unavailable",
			mockSetup: func(m *MockTodoUsecase) {
				m.On("GetAllTodos", mock.Anything).Return(nil, domain.ErrStoreUnavailable)
			},
			method:     http.MethodGet,
			path:       "/api/todos",
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name: "scoped list goes through the filter",
			mockSetup: func(m *MockTodoUsecase) {
				m.On("FilterTodos", mock.Anything, domain.TodoFilter{Scope: domain.ScopeActive, SearchQuery: "milk"}).
					Return(nil, domain.ErrStoreUnavailable)
			},
			method:     http.MethodGet,
			path:       "/api/todos?scope=active&q=milk",
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name: "write conflict",
			mockSetup: func(m *MockTodoUsecase) {
				m.On("CreateTodo", mock.Anything, usecase.CreateTodoRequest{Title: "x"}).
					Return(nil, domain.ErrWriteConflict)
			},
			method:     http.MethodPost,
			path:       "/api/todos",
			body:       `{"title":"x"}`,
			wantStatus: http.StatusConflict,
		},
		{
			name: "count failure",
			mockSetup: func(m *MockTodoUsecase) {
				m.On("GetActiveCount", mock.Anything).Return(0, assert.AnError)
				m.On("GetCompletedCount", mock.Anything).Return(3, nil).Maybe()
			},
			method:     http.MethodGet,
			path:       "/api/todos/counts",
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "malformed json",
			mockSetup:  func(m *MockTodoUsecase) {},
			method:     http.MethodPost,
			path:       "/api/todos",
			body:       `{"title":`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := new(MockTodoUsecase)
			tt.mockSetup(uc)

			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			newEngine(uc).ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			uc.AssertExpectations(t)
		})
	}
}

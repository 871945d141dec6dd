package metrics_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"todo-app/src/domain"
	"todo-app/src/infrastructure/repository"
	"todo-app/src/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstrumentRepository(t *testing.T) {
	ctx := context.Background()
	m := metrics.New()
	repo := m.InstrumentRepository(repository.NewMemoryTodoRepository())

	created, err := repo.Create(ctx, domain.CreateTodoInput{Title: "count me"})
	require.NoError(t, err)
	_, err = repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	_, err = repo.GetByCompleted(ctx, false)
	require.NoError(t, err)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = repo.GetAll(cancelled)
	require.Error(t, err)

	ops := m.Operations()
	assert.Equal(t, 1.0, testutil.ToFloat64(ops.WithLabelValues("create", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(ops.WithLabelValues("get_by_id", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(ops.WithLabelValues("get_by_completed", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(ops.WithLabelValues("get_all", "error")))
}

func TestMetricsHandler(t *testing.T) {
	m := metrics.New()
	repo := m.InstrumentRepository(repository.NewMemoryTodoRepository())
	_, err := repo.Delete(context.Background(), "missing")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `todo_repository_operations_total{op="delete",result="ok"} 1`)
	assert.Contains(t, rec.Body.String(), "todo_repository_operation_duration_seconds")
}

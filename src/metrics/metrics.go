package metrics

import (
	"context"
	"net/http"
	"time"

	"todo-app/src/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the repository collectors.
type Metrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	gatherer   prometheus.Gatherer
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	return NewWithRegistry(reg, reg)
}

// NewWithRegistry registers the collectors on reg and serves them from gatherer.
func NewWithRegistry(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "todo_repository_operations_total",
			Help: "Repository operations by name and result",
		}, []string{"op", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "todo_repository_operation_duration_seconds",
			Help:    "Repository operation latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		gatherer: gatherer,
	}
	reg.MustRegister(m.operations, m.duration)
	return m
}

// Handler serves the registered metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Operations exposes the operation counter for inspection.
func (m *Metrics) Operations() *prometheus.CounterVec {
	return m.operations
}

func (m *Metrics) observe(op string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.operations.WithLabelValues(op, result).Inc()
	m.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// InstrumentRepository wraps repo so every call is counted and timed.
func (m *Metrics) InstrumentRepository(repo domain.TodoRepository) domain.TodoRepository {
	return &instrumentedRepository{next: repo, metrics: m}
}

type instrumentedRepository struct {
	next    domain.TodoRepository
	metrics *Metrics
}

func (r *instrumentedRepository) GetAll(ctx context.Context) (todos []domain.Todo, err error) {
	defer func(start time.Time) { r.metrics.observe("get_all", start, err) }(time.Now())
	return r.next.GetAll(ctx)
}

func (r *instrumentedRepository) GetByID(ctx context.Context, id string) (todo *domain.Todo, err error) {
	defer func(start time.Time) { r.metrics.observe("get_by_id", start, err) }(time.Now())
	return r.next.GetByID(ctx, id)
}

func (r *instrumentedRepository) Create(ctx context.Context, input domain.CreateTodoInput) (todo *domain.Todo, err error) {
	defer func(start time.Time) { r.metrics.observe("create", start, err) }(time.Now())
	return r.next.Create(ctx, input)
}

func (r *instrumentedRepository) Update(ctx context.Context, id string, patch domain.TodoPatch) (todo *domain.Todo, err error) {
	defer func(start time.Time) { r.metrics.observe("update", start, err) }(time.Now())
	return r.next.Update(ctx, id, patch)
}

func (r *instrumentedRepository) Delete(ctx context.Context, id string) (removed bool, err error) {
	defer func(start time.Time) { r.metrics.observe("delete", start, err) }(time.Now())
	return r.next.Delete(ctx, id)
}

func (r *instrumentedRepository) GetByCompleted(ctx context.Context, completed bool) (todos []domain.Todo, err error) {
	defer func(start time.Time) { r.metrics.observe("get_by_completed", start, err) }(time.Now())
	return r.next.GetByCompleted(ctx, completed)
}

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Login outcomes.
const (
	LoginAdmin   = "admin"
	LoginUser    = "user"
	LoginBanned  = "banned"
	LoginInvalid = "invalid"
	LoginError   = "error"
)

// Post write operations.
const (
	PostCreate = "create"
	PostEdit   = "edit"
	PostDelete = "delete"
)

// Metrics holds the application counters. Each instance owns its registry
// so tests can build as many as they like.
type Metrics struct {
	Registry     *prometheus.Registry
	Logins       *prometheus.CounterVec
	Moderation   *prometheus.CounterVec
	PostsWritten *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		Logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blog_logins_total",
			Help: "Login attempts by outcome.",
		}, []string{"outcome"}),
		Moderation: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blog_moderation_actions_total",
			Help: "Successful administrator actions by kind.",
		}, []string{"action"}),
		PostsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blog_posts_written_total",
			Help: "Successful post writes by operation.",
		}, []string{"op"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Logins, m.Moderation, m.PostsWritten,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

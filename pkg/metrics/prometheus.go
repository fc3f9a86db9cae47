package metrics

// HTTP request metrics for gin, derived from github.com/zsais/go-gin-prometheus.
// Push gateway and basic-auth variants are dropped; the referer label is
// replaced by the matched route template.

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var httpLabels = []string{"code", "method", "route"}

var reqCnt = &Metric{
	ID:          "reqCnt",
	Name:        "req_total",
	Description: "How many HTTP requests processed, partitioned by status code, method and route.",
	Type:        "counter_vec",
	Args:        httpLabels,
}

var reqDur = &Metric{
	ID:          "reqDur",
	Name:        "req_dur_ms",
	Description: "The HTTP request latencies in milliseconds.",
	Type:        "histogram_vec",
	Args:        httpLabels,
}

var resSz = &Metric{
	ID:          "resSz",
	Name:        "resp_sz_bytes",
	Description: "The HTTP response sizes in bytes.",
	Type:        "summary_vec",
	Args:        httpLabels,
}

var reqSz = &Metric{
	ID:          "reqSz",
	Name:        "req_sz_bytes",
	Description: "The HTTP request sizes in bytes.",
	Type:        "summary_vec",
	Args:        httpLabels,
}

var standardMetrics = []*Metric{reqCnt, reqDur, resSz, reqSz}

const (
	defaultMetricPath = "/metrics"
	unmatchedRoute    = "unmatched"
)

type Logger interface {
	Errorf(format string, v ...interface{})
}

// RouteLabelFn maps a request to the "route" label value.
type RouteLabelFn func(c *gin.Context) string

// FullPathLabel labels requests by their gin route template so path
// parameters do not create new series.
func FullPathLabel(c *gin.Context) string {
	if fp := c.FullPath(); fp != "" {
		return fp
	}
	return unmatchedRoute
}

// Prometheus records HTTP metrics and serves the registry either on the
// application engine or on a dedicated listener.
type Prometheus struct {
	reqCnt       *prometheus.CounterVec
	reqDur       *prometheus.HistogramVec
	reqSz, resSz *prometheus.SummaryVec

	MetricsPath string
	RouteLabel  RouteLabelFn
	skip        map[string]struct{}

	srv    *http.Server
	logger Logger
}

type NewPrometheusOptions struct {
	Subsystem   string
	MetricsPath string
	RouteLabel  RouteLabelFn
	// SkipPaths are not measured, e.g. liveness probes.
	SkipPaths []string
	Logger    Logger
}

// NewPrometheus registers the HTTP metrics under subsystem together with the
// sync collectors.
func NewPrometheus(options NewPrometheusOptions) *Prometheus {
	p := &Prometheus{
		MetricsPath: options.MetricsPath,
		RouteLabel:  options.RouteLabel,
		skip:        map[string]struct{}{},
		logger:      options.Logger,
	}
	if p.MetricsPath == "" {
		p.MetricsPath = defaultMetricPath
	}
	if p.RouteLabel == nil {
		p.RouteLabel = FullPathLabel
	}
	if p.logger == nil {
		p.logger = zap.NewNop().Sugar()
	}
	p.skip[p.MetricsPath] = struct{}{}
	for _, s := range options.SkipPaths {
		p.skip[s] = struct{}{}
	}

	p.registerMetrics(options.Subsystem)
	registerSyncMetrics()
	return p
}

func (p *Prometheus) registerMetrics(subsystem string) {
	for _, def := range standardMetrics {
		metric := NewMetric(def, subsystem)
		if err := prometheus.Register(metric); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				p.logger.Errorf("%s could not be registered in Prometheus, err=%v", def.Name, err)
				continue
			}
			metric = already.ExistingCollector
		}
		switch def {
		case reqCnt:
			p.reqCnt = metric.(*prometheus.CounterVec)
		case reqDur:
			p.reqDur = metric.(*prometheus.HistogramVec)
		case resSz:
			p.resSz = metric.(*prometheus.SummaryVec)
		case reqSz:
			p.reqSz = metric.(*prometheus.SummaryVec)
		}
		def.MetricCollector = metric
	}
}

// Use measures every request on e and serves the registry from e itself.
func (p *Prometheus) Use(e *gin.Engine) {
	e.Use(p.HandlerFunc())
	e.GET(p.MetricsPath, prometheusHandler())
}

// Listen prepares a dedicated metrics listener on addr; Start and Shutdown
// control it. Requests on e are still measured.
func (p *Prometheus) Listen(e *gin.Engine, addr string) {
	e.Use(p.HandlerFunc())
	router := gin.New()
	router.GET(p.MetricsPath, prometheusHandler())
	p.srv = &http.Server{Addr: addr, Handler: router, ReadHeaderTimeout: 5 * time.Second}
}

func (p *Prometheus) Start() {
	if p.srv == nil {
		return
	}
	go func() {
		if err := p.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			p.logger.Errorf("metrics server stopped: %v", err)
		}
	}()
}

func (p *Prometheus) Shutdown(ctx context.Context) error {
	if p.srv == nil {
		return nil
	}
	return p.srv.Shutdown(ctx)
}

// HandlerFunc is the measuring middleware.
func (p *Prometheus) HandlerFunc() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := p.skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		start := time.Now()
		reqBytes := computeApproximateRequestSize(c.Request)

		c.Next()

		labels := []string{strconv.Itoa(c.Writer.Status()), c.Request.Method, p.RouteLabel(c)}
		p.reqDur.WithLabelValues(labels...).Observe(MillisecondsSince(start))
		p.reqCnt.WithLabelValues(labels...).Inc()
		p.reqSz.WithLabelValues(labels...).Observe(float64(reqBytes))
		p.resSz.WithLabelValues(labels...).Observe(float64(max(c.Writer.Size(), 0)))
	}
}

func prometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

func computeApproximateRequestSize(r *http.Request) int {
	s := len(r.Method) + len(r.Proto) + len(r.Host)
	if r.URL != nil {
		s += len(r.URL.Path)
	}
	for name, values := range r.Header {
		s += len(name)
		for _, value := range values {
			s += len(value)
		}
	}
	if r.ContentLength > 0 {
		s += int(r.ContentLength)
	}
	return s
}

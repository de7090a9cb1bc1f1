package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// 未命中任何路由的请求统一记到这个标签下，避免任意路径撑大标签基数。
const unmatchedRoute = "unmatched"

// HTTPMetrics 记录简历 REST 接口的请求量、耗时与响应体大小，按路由模板聚合。
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	size     *prometheus.HistogramVec
	inFlight prometheus.Gauge
}

// NewHTTPMetrics 在给定 registerer 上注册接口指标；reg 为 nil 时使用默认注册表。
func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &HTTPMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "resumebuilder",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "简历接口请求总数，按路由模板与状态码分类（2xx/4xx/5xx）统计。",
		}, []string{"route", "method", "code_class"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "resumebuilder",
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "简历接口处理耗时（秒）。编辑器的自动保存落在低档位，PDF 下载等慢请求落在高档位。",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 11),
		}, []string{"route", "method"}),
		size: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "resumebuilder",
			Subsystem: "api",
			Name:      "response_size_bytes",
			Help:      "响应体大小（字节），主要反映完整简历树的体积。",
			Buckets:   prometheus.ExponentialBuckets(256, 4, 8),
		}, []string{"route"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "resumebuilder",
			Subsystem: "api",
			Name:      "requests_in_flight",
			Help:      "正在处理的简历接口请求数。",
		}),
	}
	reg.MustRegister(m.requests, m.latency, m.size, m.inFlight)
	return m
}

// Middleware 返回采集指标的 Gin 中间件。/metrics 自身的抓取请求不计入。
func (m *HTTPMetrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "/metrics" {
			c.Next()
			return
		}
		if route == "" {
			route = unmatchedRoute
		}

		start := time.Now()
		m.inFlight.Inc()
		defer m.inFlight.Dec()

		c.Next()

		method := c.Request.Method
		m.requests.WithLabelValues(route, method, codeClass(c.Writer.Status())).Inc()
		m.latency.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
		m.size.WithLabelValues(route).Observe(float64(max(c.Writer.Size(), 0)))
	}
}

func codeClass(status int) string {
	return strconv.Itoa(status/100) + "xx"
}

var defaultHTTP = sync.OnceValue(func() *HTTPMetrics { return NewHTTPMetrics(nil) })

// HTTPMiddleware 使用默认注册表上的 HTTPMetrics，多次调用共享同一组指标。
func HTTPMiddleware() gin.HandlerFunc {
	return defaultHTTP().Middleware()
}

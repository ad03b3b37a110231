package middleware

import (
	"context"
	"time"

	aws_pkg "payment-service/pkg/aws"

	"github.com/gin-gonic/gin"
)

// HTTPMetricsRecorder is the part of *aws_pkg.MetricsClient the metrics
// middleware uses. A nil *aws_pkg.MetricsClient reports disabled.
type HTTPMetricsRecorder interface {
	IsEnabled() bool
	RecordCount(ctx context.Context, metricName string, dimensions map[string]string) error
	RecordLatency(ctx context.Context, metricName string, duration time.Duration, dimensions map[string]string) error
}

const metricsFlushTimeout = 5 * time.Second

// Metrics records one request count and latency per routed checkout call,
// plus an error-class counter for 4xx and 5xx answers. Health probes and
// unrouted paths are not recorded.
func Metrics(recorder HTTPMetricsRecorder, serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if recorder == nil || !recorder.IsEnabled() {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" || route == healthRoute {
			return
		}

		status := c.Writer.Status()
		sample := requestSample{
			duration: time.Since(start),
			status:   status,
			dimensions: map[string]string{
				"Service": serviceName,
				"Route":   c.Request.Method + " " + route,
				"Status":  statusCodeToRange(status),
			},
		}
		go sample.flush(recorder)
	}
}

type requestSample struct {
	duration   time.Duration
	status     int
	dimensions map[string]string
}

func (s requestSample) flush(recorder HTTPMetricsRecorder) {
	ctx, cancel := context.WithTimeout(context.Background(), metricsFlushTimeout)
	defer cancel()

	_ = recorder.RecordCount(ctx, aws_pkg.MetricHTTPRequests, s.dimensions)
	_ = recorder.RecordLatency(ctx, aws_pkg.MetricHTTPLatency, s.duration, s.dimensions)

	if errClass := errorClassMetric(s.status); errClass != "" {
		_ = recorder.RecordCount(ctx, aws_pkg.MetricHTTPErrors, s.dimensions)
		_ = recorder.RecordCount(ctx, errClass, s.dimensions)
	}
}

func errorClassMetric(status int) string {
	switch {
	case status >= 500:
		return aws_pkg.MetricHTTP5xx
	case status >= 400:
		return aws_pkg.MetricHTTP4xx
	}
	return ""
}

func statusCodeToRange(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return "2xx"
	case statusCode >= 300 && statusCode < 400:
		return "3xx"
	case statusCode >= 400 && statusCode < 500:
		return "4xx"
	case statusCode >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}

// Package metrics defines the Prometheus collectors exposed on /metrics.
package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	apperrors "homeserve/internal/errors"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	VerificationCodesIssuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verification_codes_issued_total",
			Help: "Total number of verification codes issued.",
		},
		[]string{"purpose"},
	)

	VerificationCodeChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verification_code_checks_total",
			Help: "Total number of verification code checks by outcome.",
		},
		[]string{"purpose", "result"},
	)

	CategoryMutationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "category_mutations_total",
			Help: "Total number of service category mutations by outcome.",
		},
		[]string{"operation", "result"},
	)

	AuthLoginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_logins_total",
			Help: "Total number of login attempts.",
		},
		[]string{"method", "result"},
	)
)

// MustRegister registers every collector with the default registry.
func MustRegister() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDurationSeconds,
		VerificationCodesIssuedTotal,
		VerificationCodeChecksTotal,
		CategoryMutationsTotal,
		AuthLoginsTotal,
	)
}

// Result labels an outcome: "ok" for nil, the AppError code otherwise.
func Result(err error) string {
	if err == nil {
		return "ok"
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return "error"
}

// ObserveCategoryMutation counts one category mutation.
func ObserveCategoryMutation(operation string, err error) {
	CategoryMutationsTotal.WithLabelValues(operation, Result(err)).Inc()
}

// Middleware records request counts and latencies by route template.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		HTTPRequestDurationSeconds.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

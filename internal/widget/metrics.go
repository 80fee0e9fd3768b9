package widget

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	initTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chatguard",
		Subsystem: "widget",
		Name:      "init_total",
		Help:      "Widget initialization decisions by outcome.",
	}, []string{"outcome"})

	jwtValidationTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chatguard",
		Subsystem: "widget",
		Name:      "jwt_validation_total",
		Help:      "Widget JWT validations by outcome.",
	}, []string{"outcome"})

	rateLimitedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "chatguard",
		Subsystem: "widget",
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the widget rate limiter.",
	})
)

// Package metrics exposes the few counters and histograms worth
// watching from outside the process: how long a tool call takes, how
// long a permission prompt sits waiting on a human, and how long a
// provider keeps a completion stream open. Everything here is a
// package-level collector registered against the default Prometheus
// registry, since a single coreassist instance never runs more than
// one of each.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ToolCallDuration records how long a tool's Execute call takes,
	// labeled by tool ID and outcome, so a slow or failing tool shows
	// up without having to grep logs for it.
	ToolCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "coreassist_tool_call_duration_seconds",
		Help:    "Duration of tool executions in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"tool", "outcome"})

	// PermissionWaitDuration records how long a permission request sat
	// pending before being resolved, labeled by permission type and
	// whether it was allowed or denied.
	PermissionWaitDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "coreassist_permission_wait_duration_seconds",
		Help:    "Time a permission request spent waiting for a decision.",
		Buckets: prometheus.DefBuckets,
	}, []string{"type", "decision"})

	// ProviderStreamDuration records how long a provider's completion
	// stream stays open, labeled by provider ID.
	ProviderStreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "coreassist_provider_stream_duration_seconds",
		Help:    "Duration of a provider completion stream in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider"})
)

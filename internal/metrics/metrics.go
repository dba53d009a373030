// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package metrics holds the Prometheus instrumentation for troika's
// submit/monitor/kill operations, labelled by site type and outcome.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type metricsTroika struct {
	once sync.Once

	submitTotal *prometheus.CounterVec
	monitorTotal *prometheus.CounterVec
	killTotal   *prometheus.CounterVec

	actionDuration *prometheus.HistogramVec

	checkConnectionTotal *prometheus.CounterVec
}

var m metricsTroika

func (m *metricsTroika) init() {
	m.once.Do(func() {
		m.submitTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "troika_submit_total", Help: "Submit operations by site type and outcome",
		}, []string{"site_type", "result"})
		m.monitorTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "troika_monitor_total", Help: "Monitor operations by site type and outcome",
		}, []string{"site_type", "result"})
		m.killTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "troika_kill_total", Help: "Kill operations by site type, outcome, and resulting kill status",
		}, []string{"site_type", "result", "status"})
		m.checkConnectionTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "troika_check_connection_total", Help: "check_connection probes by site type and outcome",
		}, []string{"site_type", "result"})

		buckets := []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}
		m.actionDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "troika_action_duration_seconds", Help: "Wall-clock duration of a controller action", Buckets: buckets,
		}, []string{"action", "site_type"})

		prometheus.MustRegister(
			m.submitTotal, m.monitorTotal, m.killTotal, m.checkConnectionTotal, m.actionDuration,
		)
	})
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RecordSubmit observes one submit attempt.
func RecordSubmit(siteType string, err error) {
	m.init()
	m.submitTotal.WithLabelValues(siteType, resultLabel(err)).Inc()
}

// RecordMonitor observes one monitor attempt.
func RecordMonitor(siteType string, err error) {
	m.init()
	m.monitorTotal.WithLabelValues(siteType, resultLabel(err)).Inc()
}

// RecordKill observes one kill attempt. status is empty when err != nil,
// since a failed kill never resolves to a KillStatus.
func RecordKill(siteType, status string, err error) {
	m.init()
	m.killTotal.WithLabelValues(siteType, resultLabel(err), status).Inc()
}

// RecordCheckConnection observes one check_connection probe.
func RecordCheckConnection(siteType string, err error) {
	m.init()
	m.checkConnectionTotal.WithLabelValues(siteType, resultLabel(err)).Inc()
}

// Timer measures an action's duration and records it against
// troika_action_duration_seconds on Stop.
type Timer struct {
	action   string
	siteType string
	start    time.Time
}

// StartTimer begins timing action for siteType.
func StartTimer(action, siteType string) *Timer {
	m.init()
	return &Timer{action: action, siteType: siteType, start: time.Now()}
}

// Stop records the elapsed duration since StartTimer.
func (t *Timer) Stop() {
	m.actionDuration.WithLabelValues(t.action, t.siteType).Observe(time.Since(t.start).Seconds())
}

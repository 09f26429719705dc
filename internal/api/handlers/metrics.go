package handlers

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

// Metrics keeps a few in-process counters and serves them in the
// Prometheus text format. No client library; the surface is three
// counters and not worth the dependency.
type Metrics struct {
	deploysTotal  atomic.Int64
	deploysFailed atomic.Int64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) RecordDeploy(success bool) {
	m.deploysTotal.Add(1)
	if !success {
		m.deploysFailed.Add(1)
	}
}

func (m *Metrics) Export(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintf(w, "# HELP deployd_up Is the server up\n")
	fmt.Fprintf(w, "# TYPE deployd_up gauge\n")
	fmt.Fprintf(w, "deployd_up 1\n")
	fmt.Fprintf(w, "# HELP deployd_deploys_total Deploys triggered since start\n")
	fmt.Fprintf(w, "# TYPE deployd_deploys_total counter\n")
	fmt.Fprintf(w, "deployd_deploys_total %d\n", m.deploysTotal.Load())
	fmt.Fprintf(w, "# HELP deployd_deploys_failed Failed deploys since start\n")
	fmt.Fprintf(w, "# TYPE deployd_deploys_failed counter\n")
	fmt.Fprintf(w, "deployd_deploys_failed %d\n", m.deploysFailed.Load())
}

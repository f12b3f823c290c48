// Package telemetry fans decoded sample rows out to the configured
// frontends: the stdout live row, the web UI, and Prometheus metrics.
package telemetry

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/rjboer/iioview/scan"
)

// Row is one decoded record together with arrival metadata.
type Row struct {
	Time   time.Time    `json:"time"`
	RateHz float64      `json:"rateHz"` // achieved sampling frequency
	Values []scan.Value `json:"values"`
}

// Reporter consumes decoded rows.
type Reporter interface {
	Report(row Row)
}

// MultiReporter fans rows out to multiple destinations.
type MultiReporter []Reporter

func (m MultiReporter) Report(row Row) {
	for _, r := range m {
		if r != nil {
			r.Report(row)
		}
	}
}

// Hub collects row history and fan-outs live updates to web subscribers.
type Hub struct {
	mu           sync.RWMutex
	history      []Row
	historyLimit int
	subscribers  map[chan Row]struct{}

	metrics *Metrics
}

// NewHub builds a hub keeping at most historyLimit rows.
func NewHub(historyLimit int, metrics *Metrics) *Hub {
	if historyLimit <= 0 {
		historyLimit = 500
	}
	return &Hub{
		historyLimit: historyLimit,
		subscribers:  make(map[chan Row]struct{}),
		metrics:      metrics,
	}
}

// Report implements Reporter and records a new row.
func (h *Hub) Report(row Row) {
	if h.metrics != nil {
		h.metrics.ObserveRow(row)
	}

	h.mu.Lock()
	h.history = append(h.history, row)
	if len(h.history) > h.historyLimit {
		h.history = h.history[len(h.history)-h.historyLimit:]
	}
	for ch := range h.subscribers {
		select {
		case ch <- row:
		default:
		}
	}
	h.mu.Unlock()
}

// History returns a copy of stored rows.
func (h *Hub) History() []Row {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Row, len(h.history))
	copy(out, h.history)
	return out
}

// Subscribe registers a listener for live updates.
func (h *Hub) Subscribe() (chan Row, func()) {
	ch := make(chan Row, 16)
	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()
	cancel := func() {
		h.mu.Lock()
		delete(h.subscribers, ch)
		close(ch)
		h.mu.Unlock()
	}
	return ch, cancel
}

func (h *Hub) handleHistory(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(h.History())
}

func (h *Hub) handleLive(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := h.Subscribe()
	defer cancel()

	for _, row := range h.History() {
		writeEvent(w, row)
	}
	flusher.Flush()

	for {
		select {
		case row, ok := <-ch:
			if !ok {
				return
			}
			writeEvent(w, row)
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, row Row) {
	payload, err := json.Marshal(row)
	if err != nil {
		return
	}
	w.Write([]byte("data: "))
	w.Write(payload)
	w.Write([]byte("\n\n"))
}

package scan

import (
	"bytes"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"tempbeacon-go/advdata"
	"tempbeacon-go/types"
)

// Reading is one decoded beacon observation.
type Reading struct {
	Address string
	RSSI    int16
	Sample  types.PhysicalSample
	SeenAt  time.Time
}

// Sink receives decoded readings.
type Sink interface {
	Publish(Reading) error
}

// Handler decodes matches, drops repeats of the same payload per device and
// fans readings out to metrics and sinks.
type Handler struct {
	log     *slog.Logger
	metrics *Metrics
	sinks   []Sink

	mu   sync.Mutex
	last map[string][]byte
}

// NewHandler returns a handler. metrics may be nil.
func NewHandler(log *slog.Logger, metrics *Metrics, sinks ...Sink) *Handler {
	return &Handler{
		log:     log.With("svc", "scan"),
		metrics: metrics,
		sinks:   sinks,
		last:    make(map[string][]byte),
	}
}

// DefaultFilter accepts beacon info blocks from any address.
func DefaultFilter(address string) Filter {
	return Filter{Address: address, CompanyID: advdata.CompanyID, Prefix: advdata.Prefix()}
}

// HandleMatch processes one match. It reports whether a new reading was
// produced.
func (h *Handler) HandleMatch(m Match) bool {
	s, err := advdata.DecodeInfo(m.Data)
	if err != nil {
		h.log.Debug("ignore non-beacon payload", "addr", m.Address, "err", err)
		return false
	}

	if h.metrics != nil {
		h.metrics.rssi.WithLabelValues(m.Address).Set(float64(m.RSSI))
	}

	h.mu.Lock()
	if bytes.Equal(h.last[m.Address], m.Data) {
		h.mu.Unlock()
		return false
	}
	h.last[m.Address] = append(h.last[m.Address][:0], m.Data...)
	h.mu.Unlock()

	r := Reading{Address: m.Address, RSSI: m.RSSI, Sample: s, SeenAt: m.SeenAt}
	h.log.Info(fmt.Sprintf("temp: %v rh: %d", s.Celsius(), s.RHPercent),
		"addr", m.Address,
		"rssi", m.RSSI,
	)
	if h.metrics != nil {
		h.metrics.Observe(r)
	}
	for _, sink := range h.sinks {
		if err := sink.Publish(r); err != nil {
			h.log.Warn("sink publish failed", "addr", m.Address, "err", err)
		}
	}
	return true
}

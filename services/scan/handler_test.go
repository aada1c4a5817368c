package scan

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"tempbeacon-go/advdata"
	"tempbeacon-go/types"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type recordSink struct {
	got []Reading
	err error
}

func (s *recordSink) Publish(r Reading) error {
	s.got = append(s.got, r)
	return s.err
}

func info(s types.PhysicalSample) []byte {
	p := advdata.NewPayload(advdata.DefaultIdentity())
	p.Encode(s)
	return p[:]
}

func TestHandlerDecodesDedupesAndExports(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	sink := &recordSink{}
	h := NewHandler(slog.New(slog.DiscardHandler), m, sink)

	addr := "CF:17:AD:40:23:70"
	match := Match{Address: addr, RSSI: -70, CompanyID: advdata.CompanyID, Data: info(types.PhysicalSample{CentiC: 2150, RHPercent: 45}), SeenAt: time.Now()}

	if !h.HandleMatch(match) {
		t.Fatal("first match not decoded")
	}
	match.RSSI = -60
	if h.HandleMatch(match) {
		t.Fatal("repeat payload not deduplicated")
	}
	if len(sink.got) != 1 || sink.got[0].Sample.CentiC != 2150 || sink.got[0].Sample.RHPercent != 45 {
		t.Fatalf("sink = %+v", sink.got)
	}

	if v := testutil.ToFloat64(m.temperature.WithLabelValues(addr)); v != 21.5 {
		t.Fatalf("temperature gauge = %v", v)
	}
	if v := testutil.ToFloat64(m.humidity.WithLabelValues(addr)); v != 45 {
		t.Fatalf("humidity gauge = %v", v)
	}
	if v := testutil.ToFloat64(m.rssi.WithLabelValues(addr)); v != -60 {
		t.Fatalf("rssi gauge = %v", v)
	}

	match.Data = info(types.PhysicalSample{CentiC: -4000})
	if !h.HandleMatch(match) {
		t.Fatal("changed payload dropped")
	}
	if v := testutil.ToFloat64(m.readings.WithLabelValues(addr)); v != 2 {
		t.Fatalf("readings counter = %v", v)
	}
}

func TestHandlerIgnoresForeignPayloadsAndSinkErrors(t *testing.T) {
	sink := &recordSink{err: errors.New("offline")}
	h := NewHandler(slog.New(slog.DiscardHandler), nil, sink)

	if h.HandleMatch(Match{Address: "A", Data: []byte{0x01, 0xD0, 0, 0}}) {
		t.Fatal("foreign payload decoded")
	}
	if !h.HandleMatch(Match{Address: "A", Data: info(types.PhysicalSample{CentiC: 100})}) {
		t.Fatal("reading dropped after sink error path")
	}
	if len(sink.got) != 1 {
		t.Fatalf("sink calls = %d", len(sink.got))
	}
}

func TestFilter(t *testing.T) {
	f := DefaultFilter("CF:17:AD:40:23:70")
	data := info(types.PhysicalSample{})
	tests := []struct {
		name    string
		addr    string
		company uint16
		data    []byte
		want    bool
	}{
		{"match", "CF:17:AD:40:23:70", advdata.CompanyID, data, true},
		{"other address", "00:00:00:00:00:01", advdata.CompanyID, data, false},
		{"other company", "CF:17:AD:40:23:70", 0xFFFF, data, false},
		{"bad prefix", "CF:17:AD:40:23:70", advdata.CompanyID, []byte{0x01, 0xD0}, false},
		{"short", "CF:17:AD:40:23:70", advdata.CompanyID, []byte{0x02}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.accepts(tt.addr, tt.company, tt.data); got != tt.want {
				t.Fatalf("accepts = %v, want %v", got, tt.want)
			}
		})
	}
	if !(Filter{}).accepts("x", 1, nil) {
		t.Fatal("zero filter must accept everything")
	}
}

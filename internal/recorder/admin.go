package recorder

import (
	"encoding/json"
	"net/http"
	"time"

	"tailscale.com/tsweb"

	"github.com/banshee-data/wits0/internal/version"
	"github.com/banshee-data/wits0/internal/wits0"
)

type dataRecordJSON struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

type snapshotJSON struct {
	Device     string             `json:"device"`
	ExchangeID string             `json:"exchange_id,omitempty"`
	CapturedAt time.Time          `json:"captured_at"`
	Error      string             `json:"error,omitempty"`
	Frames     [][]dataRecordJSON `json:"frames"`
}

func (p *Poller) snapshotJSON(s *Snapshot) snapshotJSON {
	out := snapshotJSON{
		Device:     p.device,
		ExchangeID: s.ExchangeID,
		CapturedAt: s.CapturedAt,
		Frames:     framesJSON(s.Records),
	}
	if s.Err != nil {
		out.Error = s.Err.Error()
	}
	return out
}

func framesJSON(records []wits0.LogicalRecord) [][]dataRecordJSON {
	frames := make([][]dataRecordJSON, 0, len(records))
	for _, lr := range records {
		frame := make([]dataRecordJSON, 0, len(lr.DataRecords))
		for _, dr := range lr.DataRecords {
			frame = append(frame, dataRecordJSON{ID: dr.Identifier.Full(), Value: dr.Value})
		}
		frames = append(frames, frame)
	}
	return frames
}

// AttachAdminRoutes attaches debugging endpoints under /debug/ on mux. These
// routes are accessible only over localhost/via Tailscale.
func (p *Poller) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)
	debug.KV("Build", version.String())
	debug.KVFunc("Last poll", func() any {
		if s := p.Last(); s != nil {
			return s.CapturedAt.Format(time.RFC3339)
		}
		return "never"
	})

	debug.Handle("wits0", "latest WITS0 data set", http.HandlerFunc(p.handleLatest))
	debug.HandleSilent("wits0-poll", http.HandlerFunc(p.handlePoll))
	debug.HandleSilent("wits0-summary", http.HandlerFunc(p.handleSummary))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

func (p *Poller) handleLatest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s := p.Last()
	if s == nil {
		http.Error(w, "No poll yet", http.StatusNotFound)
		return
	}
	writeJSON(w, p.snapshotJSON(s))
}

func (p *Poller) handlePoll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s, err := p.PollOnce()
	if err != nil {
		w.WriteHeader(http.StatusBadGateway)
	}
	writeJSON(w, p.snapshotJSON(s))
}

func (p *Poller) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if p.store == nil {
		http.Error(w, "No store configured", http.StatusNotFound)
		return
	}
	item := r.URL.Query().Get("item")
	if _, err := wits0.ParseIdentifier(item); err != nil {
		http.Error(w, "item must be a 4 character identifier", http.StatusBadRequest)
		return
	}
	sum, err := p.store.Summarize(p.device, item)
	if err != nil {
		http.Error(w, "Failed to summarize", http.StatusInternalServerError)
		return
	}
	writeJSON(w, sum)
}

package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/process"
)

// HealthReport is what the keepalive pinger and the hosting platform
// see. Process stats come from gopsutil; a stat failure degrades the
// field to zero instead of failing the probe.
type HealthReport struct {
	Status     string  `json:"status"`
	UptimeSecs int64   `json:"uptime_secs"`
	CPUPercent float64 `json:"cpu_percent"`
	RSSMiB     float64 `json:"rss_mib"`
	Parties    int     `json:"parties"`
}

type PartyCounter func() int

// RankingOps is the operator surface of the ranking pipeline, exposed
// so a run can be forced between scheduled cycles.
type RankingOps interface {
	Collect(ctx context.Context) error
	Publish(ctx context.Context) error
	Update(ctx context.Context) error
}

// StartHealthServer exposes "/" and "/health" on all interfaces. The
// root route answers 200 as well: free-tier platforms probe it.
func StartHealthServer(log *slog.Logger, port int, parties PartyCounter, ladder RankingOps) {
	started := time.Now()
	mux := http.NewServeMux()

	report := func() HealthReport {
		r := HealthReport{
			Status:     "ok",
			UptimeSecs: int64(time.Since(started).Seconds()),
		}
		if parties != nil {
			r.Parties = parties()
		}
		if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
			r.CPUPercent = percents[0]
		}
		if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
			if mem, err := proc.MemoryInfo(); err == nil {
				r.RSSMiB = float64(mem.RSS) / (1 << 20)
			}
		}
		return r
	}

	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "party-lab is running")
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(report())
	})
	if ladder != nil {
		mux.HandleFunc("/ranking/collect", rankingRoute(log, "collect", ladder.Collect))
		mux.HandleFunc("/ranking/publish", rankingRoute(log, "publish", ladder.Publish))
		mux.HandleFunc("/ranking/update", rankingRoute(log, "update", ladder.Update))
	}

	go func() {
		if err := http.ListenAndServe(fmt.Sprintf("0.0.0.0:%d", port), mux); err != nil {
			log.Error("health server stopped", "error", err)
		}
	}()
}

// rankingRoute runs one pipeline step synchronously so the caller sees
// whether it worked. POST only, this mutates channel state.
func rankingRoute(log *slog.Logger, step string, run func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST required", http.StatusMethodNotAllowed)
			return
		}
		log.Info("manual ranking step requested", "step", step)
		if err := run(r.Context()); err != nil {
			log.Error("manual ranking step failed", "step", step, "error", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		fmt.Fprintf(w, "%s done", step)
	}
}

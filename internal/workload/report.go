package workload

import (
	"io"
	"time"

	json "github.com/goccy/go-json"
)

// Report summarizes a workload run.
type Report struct {
	RunID       string        `json:"run_id"`
	Workers     int           `json:"workers"`
	Gets        uint64        `json:"gets"`
	Returns     uint64        `json:"returns"`
	Drains      uint64        `json:"drains"`
	Outstanding uint64        `json:"outstanding"` // Instances still held when the run ended.
	Elapsed     time.Duration `json:"elapsed_ns"`
}

// OpsPerSecond returns the combined Get and Return throughput of the run.
func (r Report) OpsPerSecond() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Gets+r.Returns) / r.Elapsed.Seconds()
}

// WriteJSON writes the report as indented JSON.
func (r Report) WriteJSON(w io.Writer) error {
	out := struct {
		Report
		OpsPerSecond float64 `json:"ops_per_second"`
	}{r, r.OpsPerSecond()}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

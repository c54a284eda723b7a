package logging

import (
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// ScanTracker counts the outcome of each file in a catalog scan and logs
// one debug line per file as it finishes. It is safe for concurrent use.
type ScanTracker struct {
	log     zerolog.Logger
	total   int64
	tickets atomic.Int64
	failed  atomic.Int64
	start   time.Time
}

// NewScanTracker starts tracking a scan of total files.
func NewScanTracker(log zerolog.Logger, total int) *ScanTracker {
	return &ScanTracker{log: log, total: int64(total), start: time.Now()}
}

// Ticket records a file that yielded a ticket.
func (st *ScanTracker) Ticket(file, titleID, kind string, d time.Duration) {
	st.tickets.Add(1)
	st.fileEvent(file, d).
		Str("title_id", titleID).
		Str("kind", kind).
		LogDebug("ticket read")
}

// Failed records a file whose ticket could not be read.
func (st *ScanTracker) Failed(file, reason string, d time.Duration) {
	st.failed.Add(1)
	st.fileEvent(file, d).
		Str("error", reason).
		LogDebug("unreadable ticket")
}

func (st *ScanTracker) fileEvent(file string, d time.Duration) *Event {
	return newEvent(st.log, EventFileScanned, "catalog", d).
		Str("file", file).
		Count("done", st.Done()).
		Count("total", st.total)
}

// Counts returns the tickets read, files failed and files expected so far.
func (st *ScanTracker) Counts() (tickets, failed, total int64) {
	return st.tickets.Load(), st.failed.Load(), st.total
}

// Done returns how many files have finished either way.
func (st *ScanTracker) Done() int64 {
	return st.tickets.Load() + st.failed.Load()
}

// Elapsed returns the time since the scan started.
func (st *ScanTracker) Elapsed() time.Duration {
	return time.Since(st.start)
}

// Complete logs the scan summary at info level.
func (st *ScanTracker) Complete(msg string) {
	tickets, failed, total := st.Counts()
	PhaseComplete(st.log, "catalog", st.Elapsed()).
		Count("files", total).
		Count("tickets", tickets).
		Count("failed", failed).
		Log(msg)
}

package supervisor

import (
	"bytes"
	"encoding/json"
	"sync"

	"github.com/go-logr/logr"

	"github.com/psyb0t/cloudflare-dynamic-dns/internal/controller"
)

// maxLine caps a buffered partial line; anything longer is not a report.
const maxLine = 64 * 1024

// reportWriter decodes the worker's JSON-lines outcome reports as they are written.
type reportWriter struct {
	mu       sync.Mutex
	buf      bytes.Buffer
	log      logr.Logger
	onReport func(controller.Report)
}

func newReportWriter(log logr.Logger, onReport func(controller.Report)) *reportWriter {
	return &reportWriter{log: log, onReport: onReport}
}

func (w *reportWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf.Write(p)
	for {
		i := bytes.IndexByte(w.buf.Bytes(), '\n')
		if i < 0 {
			break
		}
		line := w.buf.Next(i + 1)
		w.handle(line[:i])
	}
	if w.buf.Len() > maxLine {
		w.log.V(1).Info("discarding oversized worker output", "bytes", w.buf.Len())
		w.buf.Reset()
	}
	return len(p), nil
}

// Flush handles a trailing line without newline, e.g. after a kill.
func (w *reportWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.buf.Len() > 0 {
		w.handle(w.buf.Bytes())
		w.buf.Reset()
	}
}

func (w *reportWriter) handle(line []byte) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return
	}
	var rep controller.Report
	if err := json.Unmarshal(line, &rep); err != nil || rep.Outcome == "" {
		w.log.V(1).Info("ignoring unexpected worker output", "line", string(line))
		return
	}
	if w.onReport != nil {
		w.onReport(rep)
	}
}

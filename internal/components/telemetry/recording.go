package telemetry

import (
	"strings"
	"sync"
)

// Report is a single call made against a RecordingAPI.
type Report struct {
	Kind   string
	Id     string
	Params []any
	Count  int64
}

// RecordingAPI keeps every report in memory, tests use it to assert that a component
// reported (or did not report) breakage. It forwards to Inner when set.
type RecordingAPI struct {
	Inner API

	mutex   sync.Mutex
	reports []Report
}

func NewRecordingAPI() *RecordingAPI {
	return &RecordingAPI{Inner: SlogAPI{}}
}

func (r *RecordingAPI) push(report Report) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.reports = append(r.reports, report)
}

func (r *RecordingAPI) ReportBroken(id string, params ...any) {
	r.push(Report{Kind: "broken", Id: id, Params: params})
	if r.Inner != nil {
		r.Inner.ReportBroken(id, params...)
	}
}

func (r *RecordingAPI) ReportWarning(id string, params ...any) {
	r.push(Report{Kind: "warning", Id: id, Params: params})
	if r.Inner != nil {
		r.Inner.ReportWarning(id, params...)
	}
}

func (r *RecordingAPI) ReportDebug(msg string, params ...any) {
	if r.Inner != nil {
		r.Inner.ReportDebug(msg, params...)
	}
}

func (r *RecordingAPI) ReportCount(id string, count int64) {
	r.push(Report{Kind: "count", Id: id, Count: count})
	if r.Inner != nil {
		r.Inner.ReportCount(id, count)
	}
}

// Reports returns all the reports of a given kind whose id ends with suffix.
// An empty suffix matches every id.
func (r *RecordingAPI) Reports(kind, suffix string) []Report {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var out []Report
	for _, report := range r.reports {
		if report.Kind != kind {
			continue
		}
		if suffix != "" && !strings.HasSuffix(report.Id, suffix) {
			continue
		}
		out = append(out, report)
	}
	return out
}

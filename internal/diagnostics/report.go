package diagnostics

import (
	"fmt"

	"github.com/couchcryptid/profile-api/internal/database"
)

// Stage names one layer of the connectivity stack.
type Stage string

// Stages in the order they run.
const (
	StageDriverPresence     Stage = "driver_presence"
	StageHostReachability   Stage = "host_reachability"
	StageAuthenticatedQuery Stage = "authenticated_query"
)

// Outcome is the result of a single stage.
type Outcome string

// Allowed Outcome values.
const (
	OutcomeOK     Outcome = "ok"
	OutcomeFailed Outcome = "failed"
)

// StageResult records what one stage observed.
type StageResult struct {
	Stage      Stage   `json:"stage"`
	Outcome    Outcome `json:"outcome"`
	Detail     string  `json:"detail,omitempty"`
	Host       string  `json:"host,omitempty"`
	ResolvedIP string  `json:"resolved_ip,omitempty"`
	Err        error   `json:"-"`
}

func (s StageResult) fail(err error) StageResult {
	s.Outcome = OutcomeFailed
	s.Err = err
	if err != nil {
		s.Detail = err.Error()
	}
	return s
}

// Report is the ordered list of stages that ran. A failed stage is always last.
type Report struct {
	Dialect database.Dialect `json:"dialect"`
	Port    int              `json:"port,omitempty"`
	Stages  []StageResult    `json:"stages"`
}

// OK reports whether every stage ran and passed.
func (r Report) OK() bool {
	if len(r.Stages) != 3 {
		return false
	}
	for _, s := range r.Stages {
		if s.Outcome != OutcomeOK {
			return false
		}
	}
	return true
}

// Failed returns the stage that stopped the run, if any.
func (r Report) Failed() (StageResult, bool) {
	for _, s := range r.Stages {
		if s.Outcome == OutcomeFailed {
			return s, true
		}
	}
	return StageResult{}, false
}

// Stage returns the result for s if that stage ran.
func (r Report) Stage(s Stage) (StageResult, bool) {
	for _, res := range r.Stages {
		if res.Stage == s {
			return res, true
		}
	}
	return StageResult{}, false
}

// Fields flattens the report into the /diag-db body. Keys for stages that
// never ran are left out.
func (r Report) Fields() map[string]any {
	f := map[string]any{
		"ok":     r.OK(),
		"driver": string(r.Dialect),
	}
	if s, ok := r.Stage(StageDriverPresence); ok {
		f["driver_ok"] = s.Outcome == OutcomeOK
	}
	if s, ok := r.Stage(StageHostReachability); ok {
		if s.Host != "" {
			f["db_host"] = s.Host
		}
		if s.ResolvedIP != "" {
			f["db_host_ip"] = s.ResolvedIP
		}
		if r.Port != 0 {
			f["db_port"] = r.Port
			f[fmt.Sprintf("tcp_%d_ok", r.Port)] = s.Outcome == OutcomeOK
		}
	}
	if s, ok := r.Stage(StageAuthenticatedQuery); ok {
		f["engine_connect_ok"] = s.Outcome == OutcomeOK
	}
	if s, ok := r.Failed(); ok {
		f["failed_stage"] = string(s.Stage)
		f["error"] = s.Detail
	}
	return f
}

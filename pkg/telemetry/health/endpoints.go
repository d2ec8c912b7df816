package health

import (
	"encoding/json"
	"net/http"
	"runtime"
)

// VersionInfo is the body of the version endpoint. The first three fields
// are stamped at link time; GoVersion comes from the runtime.
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
}

// Handler returns the health endpoint handler. It always answers 200 and
// reports the dependency state in the body.
//
// Example response:
//
//	{
//	    "status": "healthy",
//	    "timestamp": "2025-11-20T10:30:00Z",
//	    "database": "connected",
//	    "uptime": 3600.5,
//	    "environment": "production",
//	    "version": "1.0.0"
//	}
func (p *Probe) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowRead(w, r) {
			return
		}
		writeJSON(w, r, http.StatusOK, p.Check(r.Context()))
	}
}

// ReadinessHandler returns the readiness endpoint handler. It serves the
// latest scheduled report, probing on demand when none exists yet.
//
// Returns:
//   - 200 OK: the dependency answered
//   - 503 Service Unavailable: the dependency is unhealthy
func (m *Monitor) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowRead(w, r) {
			return
		}

		report, ok := m.Latest()
		if !ok || !m.Running() {
			report = m.Run(r.Context())
		}

		status := http.StatusOK
		if !report.Healthy() {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, r, status, report)
	}
}

// VersionHandler serves the build information of the running binary.
func VersionHandler(version, commit, buildTime string) http.HandlerFunc {
	info := VersionInfo{
		Version:   version,
		Commit:    commit,
		BuildTime: buildTime,
		GoVersion: runtime.Version(),
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if !allowRead(w, r) {
			return
		}
		writeJSON(w, r, http.StatusOK, info)
	}
}

// allowRead rejects anything but GET and HEAD.
func allowRead(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if r.Method != http.MethodHead {
		_ = json.NewEncoder(w).Encode(v)
	}
}

package models

// DeployRun records one triggered deployment, successful or not.
type DeployRun struct {
	ID         string `json:"id"`
	App        string `json:"app"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
	RemoteAddr string `json:"remote_addr,omitempty"`
	StartedAt  int64  `json:"started_at"`
	DurationMs int64  `json:"duration_ms"`
}

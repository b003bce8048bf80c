package domain

// VaultStats is the dashboard summary.
type VaultStats struct {
	Principals     int    `json:"principals"`
	Agents         int    `json:"agents"`
	EnabledAgents  int    `json:"enabled_agents"`
	Routes         int    `json:"routes"`
	PendingRequest bool   `json:"pending_request"`
	SwapsExecuted  uint64 `json:"swaps_executed"`
	LastSeq        uint64 `json:"last_seq"`
	TotalMain      string `json:"total_main"`
	TotalSub       string `json:"total_sub"`
	TotalSpent     string `json:"total_spent"`
	BackendSet     bool   `json:"backend_set"`
}

// HistoryStats summarizes the stored audit history for the last hour.
type HistoryStats struct {
	Events            int64   `json:"events"`
	Executed          int64   `json:"executed"`
	Rejected          int64   `json:"rejected"`
	Simulated         int64   `json:"simulated"`
	Parked            int64   `json:"parked"`
	P95Latency        float64 `json:"p95_latency_ms"`
	RPS               float64 `json:"rps"`
	BlockedAgents     int64   `json:"blocked_agents"`
	QuarantinedAgents int64   `json:"quarantined_agents"`
	SandboxAgents     int64   `json:"sandbox_agents"`
}

package model

// HealthStatus represents the health check status
type HealthStatus struct {
	Status  string       `json:"status"`
	Service string       `json:"service"`
	Version string       `json:"version"`
	Queue   *QueueStatus `json:"queue,omitempty"`
}

// QueueStatus describes the release run queue of the server
type QueueStatus struct {
	Pending  int  `json:"pending"`
	Capacity int  `json:"capacity"`
	Running  bool `json:"running"`
	Closed   bool `json:"closed"`
}

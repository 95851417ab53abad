package domain

// BackendInfo is a point-in-time view of the supervised backend.
type BackendInfo struct {
	Running   bool    `json:"running"`   // a process handle is held
	Reachable bool    `json:"reachable"` // the endpoint accepted a connection
	Addr      string  `json:"addr"`
	PID       int     `json:"pid,omitempty"`
	Launch    *Launch `json:"launch,omitempty"`
	State     string  `json:"state"` // shutdown coordinator state
}

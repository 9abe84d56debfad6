package api

import "time"

// InstanceServers is the bootstrap result: a connect token plus the
// servers it is valid for.
type InstanceServers struct {
	Token           string           `json:"token"`
	InstanceServers []InstanceServer `json:"instanceServers"`
}

// InstanceServer describes one push-feed endpoint. Intervals are in
// milliseconds.
type InstanceServer struct {
	Endpoint     string `json:"endpoint"`
	PingInterval int64  `json:"pingInterval"`
	PingTimeout  int64  `json:"pingTimeout"`
	Protocol     string `json:"protocol"`
	Encrypt      bool   `json:"encrypt"`
}

func (s InstanceServer) PingIntervalDuration() time.Duration {
	return time.Duration(s.PingInterval) * time.Millisecond
}

func (s InstanceServer) PingTimeoutDuration() time.Duration {
	return time.Duration(s.PingTimeout) * time.Millisecond
}

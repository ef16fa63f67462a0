package collector

import "github.com/derktes/rfsniffer/pulse"

// publishRequest is the body posted to /buttons/{name}.
type publishRequest struct {
	Protocol int         `json:"protocol"`
	Samples  pulse.Train `json:"samples"`
}

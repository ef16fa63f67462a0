package server

import "github.com/derktes/rfsniffer/pulse"

// createRequest is the body of POST /buttons/{name}.
type createRequest struct {
	Protocol int         `json:"protocol"`
	Samples  pulse.Train `json:"samples"`
}

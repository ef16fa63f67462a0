package server

import (
	"time"

	"github.com/derktes/rfsniffer/pulse"
	"github.com/derktes/rfsniffer/store"
)

type buttonResponse struct {
	Name        string      `json:"name"`
	Protocol    int         `json:"protocol"`
	RecordedAt  time.Time   `json:"recorded_at"`
	Transitions int         `json:"transitions"`
	Samples     pulse.Train `json:"samples"`
}

func newButtonResponse(b store.Button) buttonResponse {
	samples := b.Train
	if samples == nil {
		samples = pulse.Train{}
	}
	return buttonResponse{
		Name:        b.Name,
		Protocol:    b.Protocol,
		RecordedAt:  b.RecordedAt.UTC(),
		Transitions: len(b.Train),
		Samples:     samples,
	}
}

type playResponse struct {
	Name        string  `json:"name"`
	Transitions int     `json:"transitions"`
	Seconds     float64 `json:"seconds"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Change event types pushed on /buttons/stream.
const (
	eventCreated = "created"
	eventDeleted = "deleted"
	eventPlayed  = "played"
)

type changeEvent struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

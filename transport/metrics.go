package transport

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Connection-level counters, registered on the default registry. Shared by
// every transport in the process; per-connection breakdown is the logger's
// job, not the metrics'.
var (
	framesRead = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "stomp",
		Subsystem: "transport",
		Name:      "frames_read_total",
		Help:      "Frames decoded from the wire.",
	})
	framesSent = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "stomp",
		Subsystem: "transport",
		Name:      "frames_sent_total",
		Help:      "Frames queued for the wire.",
	})
	bytesRead = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "stomp",
		Subsystem: "transport",
		Name:      "read_bytes_total",
		Help:      "Raw bytes read from the transport.",
	})
	bytesWritten = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "stomp",
		Subsystem: "transport",
		Name:      "written_bytes_total",
		Help:      "Raw bytes written to the transport.",
	})
	decodeErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "stomp",
		Subsystem: "transport",
		Name:      "decode_errors_total",
		Help:      "Connections failed by a decode error.",
	})
)

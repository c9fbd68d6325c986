package realtime

// Named realtime streams.
const (
	StreamNotifications = "notifications"
	StreamPipeline      = "pipeline"
)

// DefaultStreams are subscribed when a client does not ask for any.
var DefaultStreams = []string{StreamNotifications}

func knownStream(stream string) bool {
	switch stream {
	case StreamNotifications, StreamPipeline:
		return true
	}
	return false
}

package liveness

// Event topics published on the shared bus.
const (
	TopicTerminalOnline  = "liveness.terminal.online"
	TopicTerminalOffline = "liveness.terminal.offline"
)

package command

// Event topics published on the shared bus.
const (
	TopicCommandQueued = "command.queued"
)

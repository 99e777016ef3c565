package fleet

// Event topics published on the shared bus.
const (
	TopicTerminalCreated = "fleet.terminal.created"
	TopicTerminalUpdated = "fleet.terminal.updated"
	TopicTerminalDeleted = "fleet.terminal.deleted"
	TopicBrandingUpdated = "fleet.branding.updated"
)

package pairing

// Event topics published on the shared bus.
const (
	TopicPairingStarted = "pairing.started"
	TopicPairingClaimed = "pairing.claimed"
)

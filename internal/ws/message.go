package ws

import "time"

// MessageType discriminates WebSocket messages.
type MessageType string

const (
	MessageTerminalOnline  MessageType = "terminal.online"
	MessageTerminalOffline MessageType = "terminal.offline"
	MessageCommandQueued   MessageType = "command.queued"
	MessageCampaignSaved   MessageType = "campaign.saved"
	MessagePairingStarted  MessageType = "pairing.started"
	MessagePairingClaimed  MessageType = "pairing.claimed"
)

// Message is the envelope for all WebSocket messages sent to admin
// dashboards.
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      any         `json:"data"`
}

// TerminalData is the payload for terminal liveness messages.
type TerminalData struct {
	TerminalCode string `json:"terminal_code"`
}

// CommandData is the payload for command.queued messages.
type CommandData struct {
	CommandID string `json:"command_id"`
}

// CampaignData is the payload for campaign.saved messages.
type CampaignData struct {
	CampaignID string `json:"campaign_id"`
}

// PairingData is the payload for pairing messages.
type PairingData struct {
	Code string `json:"code"`
}

package campaign

// Event topics published on the shared bus.
const (
	TopicCampaignSaved   = "campaign.saved"
	TopicCampaignDeleted = "campaign.deleted"
)

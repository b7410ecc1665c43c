package types

// UserID is a Slack user ID (e.g. "U024BE7LH")
type UserID string

// ChannelID is a Slack channel ID (e.g. "C024BE91L")
type ChannelID string

func (x UserID) String() string    { return string(x) }
func (x ChannelID) String() string { return string(x) }

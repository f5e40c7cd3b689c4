package models

// Channel represents a channel that streams are assigned to.
// StreamIDs is the ordered list of assigned streams (first = preferred).
type Channel struct {
	ID        int64   `json:"id,omitempty"`
	Name      string  `json:"name"`
	Number    *int    `json:"channel_number,omitempty"`
	Logo      *string `json:"logo,omitempty"`
	StreamIDs []int64 `json:"streams,omitempty"` // populated by read queries (joined from channel_streams)
}

// ChannelGroup is a named set of channels for easier rule scoping.
// Membership is resolved at execution time; rules never snapshot it.
type ChannelGroup struct {
	ID          int64   `json:"id,omitempty"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	ChannelIDs  []int64 `json:"channel_ids"`
}

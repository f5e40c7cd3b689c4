package models

import "time"

// Stream represents a single stream entry ingested from an M3U account.
type Stream struct {
	ID           int64        `json:"id,omitempty"`
	Name         string       `json:"name"`
	URL          string       `json:"url,omitempty"`
	M3UAccountID int64        `json:"m3u_account_id,omitempty"`
	Group        *string      `json:"group,omitempty"`
	Logo         *string      `json:"logo,omitempty"`
	Stats        *StreamStats `json:"stream_stats,omitempty"`
}

// Tested reports whether the stream has cached quality statistics.
// Absence of stats is a valid state and means "untested".
func (s *Stream) Tested() bool {
	return s.Stats != nil
}

// StreamStats holds measured quality statistics for a stream.
// Stats are replaced wholesale on each successful probe.
type StreamStats struct {
	VideoCodec    string    `json:"video_codec,omitempty"`
	AudioCodec    string    `json:"audio_codec,omitempty"`
	Resolution    string    `json:"resolution,omitempty"` // "1920x1080"
	SourceFPS     float64   `json:"source_fps,omitempty"`
	OutputBitrate float64   `json:"output_bitrate,omitempty"` // kbps
	PixelFormat   string    `json:"pixel_format,omitempty"`
	TestedAt      time.Time `json:"tested_at,omitempty"`
}

// Age returns how long ago the stats were measured.
func (st *StreamStats) Age(now time.Time) time.Duration {
	return now.Sub(st.TestedAt)
}

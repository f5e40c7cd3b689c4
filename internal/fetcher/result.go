package fetcher

// StreamEntry is one stream parsed from an M3U playlist.
type StreamEntry struct {
	Name  string
	URL   string
	Group *string
	Logo  *string
}

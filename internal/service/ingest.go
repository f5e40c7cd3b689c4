package service

import (
	"context"
	"fmt"
	"time"

	"github.com/voyagen/streamplus/internal/fetcher"
	"github.com/voyagen/streamplus/internal/models"
	"github.com/voyagen/streamplus/internal/store"
)

// Ingest fetches an M3U URL, parses it, and stores the account and its
// streams. Existing streams are updated in place (preserving cached stats).
// Streams that no longer appear in the M3U are removed, and new ones are
// added. accountName is optional; if empty, a default name is used.
func Ingest(ctx context.Context, s store.Store, m3uURL string, accountName string, userAgent string, timeout time.Duration, useTvgID bool) (accountID int64, streamCount int, err error) {
	if m3uURL == "" {
		return 0, 0, fmt.Errorf("m3u URL is required")
	}
	if accountName == "" {
		accountName = "m3u"
	}

	entries, err := fetcher.FetchM3U(ctx, m3uURL, userAgent, useTvgID, timeout)
	if err != nil {
		return 0, 0, fmt.Errorf("fetch: %w", err)
	}

	accountID, err = s.CreateOrGetAccount(ctx, accountName, m3uURL, userAgent)
	if err != nil {
		return 0, 0, fmt.Errorf("CreateOrGetAccount: %w", err)
	}

	// Upsert all streams from the M3U and track their IDs so we can prune
	// stale entries afterwards.
	keepIDs := make([]int64, 0, len(entries))
	for i := range entries {
		// Check for context cancellation between iterations to allow
		// graceful shutdown during long ingests.
		if err := ctx.Err(); err != nil {
			return accountID, streamCount, fmt.Errorf("ingest cancelled: %w", err)
		}

		stream := &models.Stream{
			Name:         entries[i].Name,
			URL:          entries[i].URL,
			M3UAccountID: accountID,
			Group:        entries[i].Group,
			Logo:         entries[i].Logo,
		}
		sid, err := s.UpsertStream(ctx, stream)
		if err != nil {
			return 0, 0, fmt.Errorf("UpsertStream: %w", err)
		}
		keepIDs = append(keepIDs, sid)
		streamCount++
	}

	// Remove streams that are no longer present in the upstream M3U.
	if err := s.RemoveStaleStreams(ctx, accountID, keepIDs); err != nil {
		return accountID, streamCount, fmt.Errorf("RemoveStaleStreams: %w", err)
	}

	if err := s.UpdateAccountLastUpdated(ctx, accountID); err != nil {
		return accountID, streamCount, fmt.Errorf("UpdateAccountLastUpdated: %w", err)
	}
	return accountID, streamCount, nil
}

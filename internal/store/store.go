package store

import (
	"context"

	"github.com/voyagen/streamplus/internal/models"
)

// Store defines persistence for M3U accounts, streams, channels, channel
// groups, and rules. The engine's Assigning step goes through
// SetChannelStreamOrder / AddStreamToChannel / RemoveStreamFromChannel.
type Store interface {
	// CreateOrGetAccount creates an M3U account by name if not exists, returns id.
	CreateOrGetAccount(ctx context.Context, name, url, userAgent string) (int64, error)
	// ListAccounts returns all M3U accounts.
	ListAccounts(ctx context.Context) ([]models.M3UAccount, error)
	// GetAccountByID returns a single account by id.
	GetAccountByID(ctx context.Context, accountID int64) (*models.M3UAccount, error)
	// UpdateAccount updates mutable fields of an account.
	UpdateAccount(ctx context.Context, accountID int64, fields AccountUpdate) error
	// DeleteAccount deletes an account and cascades to its streams.
	DeleteAccount(ctx context.Context, accountID int64) error
	// UpdateAccountLastUpdated sets last_updated for the account.
	UpdateAccountLastUpdated(ctx context.Context, accountID int64) error

	// UpsertStream inserts or updates a stream; returns stream id.
	// Cached stats are preserved on update.
	UpsertStream(ctx context.Context, s *models.Stream) (int64, error)
	// RemoveStaleStreams deletes streams of the account not in keepIDs.
	RemoveStaleStreams(ctx context.Context, accountID int64, keepIDs []int64) error
	// ListStreams returns streams matching the filter and the total count
	// (before limit/offset).
	ListStreams(ctx context.Context, filter StreamFilter) ([]models.Stream, int, error)
	// GetStreamByID returns a single stream by id.
	GetStreamByID(ctx context.Context, streamID int64) (*models.Stream, error)
	// UpdateStreamStats replaces the stream's cached statistics wholesale.
	UpdateStreamStats(ctx context.Context, streamID int64, stats *models.StreamStats) error
	// ClearStreamStats removes cached statistics, returning the stream to
	// the untested state.
	ClearStreamStats(ctx context.Context, streamID int64) error

	// ListChannels returns all channels with their ordered stream ids.
	ListChannels(ctx context.Context) ([]models.Channel, error)
	// GetChannelByID returns a single channel with its ordered stream ids.
	GetChannelByID(ctx context.Context, channelID int64) (*models.Channel, error)
	// CreateChannel creates a channel; returns its id.
	CreateChannel(ctx context.Context, ch *models.Channel) (int64, error)
	// UpdateChannel updates mutable fields of a channel.
	UpdateChannel(ctx context.Context, channelID int64, fields ChannelUpdate) error
	// GetChannelStreams returns the channel's streams in assignment order.
	GetChannelStreams(ctx context.Context, channelID int64) ([]models.Stream, error)
	// SetChannelStreamOrder replaces the channel's stream assignment with
	// the given ordered ids, atomically.
	SetChannelStreamOrder(ctx context.Context, channelID int64, streamIDs []int64) error
	// AddStreamToChannel appends a stream to the channel's order if absent.
	AddStreamToChannel(ctx context.Context, channelID, streamID int64) error
	// RemoveStreamFromChannel removes a stream from the channel.
	RemoveStreamFromChannel(ctx context.Context, channelID, streamID int64) error

	// ListChannelGroups returns all groups with member channel ids.
	ListChannelGroups(ctx context.Context) ([]models.ChannelGroup, error)
	// GetChannelGroupByID returns a single group with member channel ids.
	GetChannelGroupByID(ctx context.Context, groupID int64) (*models.ChannelGroup, error)
	// CreateChannelGroup creates a group with its members; returns its id.
	CreateChannelGroup(ctx context.Context, g *models.ChannelGroup) (int64, error)
	// UpdateChannelGroup replaces name, description, and membership.
	UpdateChannelGroup(ctx context.Context, groupID int64, g *models.ChannelGroup) error
	// DeleteChannelGroup deletes a group (not its channels).
	DeleteChannelGroup(ctx context.Context, groupID int64) error

	// ListAutoAssignRules returns all auto-assign rules.
	ListAutoAssignRules(ctx context.Context) ([]models.AutoAssignRule, error)
	// GetAutoAssignRuleByID returns a single auto-assign rule.
	GetAutoAssignRuleByID(ctx context.Context, ruleID int64) (*models.AutoAssignRule, error)
	// CreateAutoAssignRule creates a rule; returns its id.
	CreateAutoAssignRule(ctx context.Context, r *models.AutoAssignRule) (int64, error)
	// UpdateAutoAssignRule replaces a rule, keeping its id.
	UpdateAutoAssignRule(ctx context.Context, ruleID int64, r *models.AutoAssignRule) error
	// DeleteAutoAssignRule deletes a rule.
	DeleteAutoAssignRule(ctx context.Context, ruleID int64) error
	// SetAutoAssignRuleEnabled toggles a rule.
	SetAutoAssignRuleEnabled(ctx context.Context, ruleID int64, enabled bool) error

	// ListSortingRules returns sorting rules ordered by execution_order
	// ascending (default order last), ties by id.
	ListSortingRules(ctx context.Context) ([]models.SortingRule, error)
	// GetSortingRuleByID returns a single sorting rule.
	GetSortingRuleByID(ctx context.Context, ruleID int64) (*models.SortingRule, error)
	// CreateSortingRule creates a rule; returns its id.
	CreateSortingRule(ctx context.Context, r *models.SortingRule) (int64, error)
	// UpdateSortingRule replaces a rule, keeping its id.
	UpdateSortingRule(ctx context.Context, ruleID int64, r *models.SortingRule) error
	// DeleteSortingRule deletes a rule.
	DeleteSortingRule(ctx context.Context, ruleID int64) error
	// SetSortingRuleEnabled toggles a rule.
	SetSortingRuleEnabled(ctx context.Context, ruleID int64, enabled bool) error
}

// StreamFilter holds optional filters for listing streams.
type StreamFilter struct {
	AccountID *int64
	Search    string // case-insensitive substring match on stream name
	Tested    *bool  // filter by presence of cached stats
	Limit     int    // <= 0 means no limit
	Offset    int
}

// AccountUpdate holds mutable fields for PATCH /m3u-accounts/{id}.
// Pointer fields: nil = don't change, non-nil = set.
type AccountUpdate struct {
	Name      *string
	URL       *string
	UserAgent *string
	Enabled   *bool
}

// ChannelUpdate holds mutable fields for PATCH /channels/{id}.
type ChannelUpdate struct {
	Name   *string
	Number *int
	Logo   *string
}

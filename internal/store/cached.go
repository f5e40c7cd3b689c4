package store

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log"
	"time"

	"github.com/voyagen/streamplus/internal/cache"
	"github.com/voyagen/streamplus/internal/models"
)

// Cache TTLs for different entity types. Streams are short-lived because
// probe results and ingests change them often; rules change rarely but
// must be fresh when executions read them, so they stay short too.
const (
	ttlAccounts = 2 * time.Minute
	ttlAccount  = 5 * time.Minute
	ttlStreams  = 1 * time.Minute
	ttlStream   = 1 * time.Minute
	ttlChannels = 1 * time.Minute
	ttlGroups   = 5 * time.Minute
	ttlRules    = 30 * time.Second
)

// CachedStore wraps a Store with a Redis caching layer.
// Read-heavy operations are served from cache when possible;
// write operations invalidate the relevant cache keys.
type CachedStore struct {
	inner Store
	cache *cache.Redis
}

// NewCachedStore creates a CachedStore that wraps inner with Redis caching.
func NewCachedStore(inner Store, c *cache.Redis) *CachedStore {
	return &CachedStore{inner: inner, cache: c}
}

// --- cached read operations ---

func (c *CachedStore) ListAccounts(ctx context.Context) ([]models.M3UAccount, error) {
	const key = "accounts:all"
	if v, err := cache.Get[[]models.M3UAccount](ctx, c.cache, key); err == nil {
		return v, nil
	}
	accounts, err := c.inner.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, accounts, ttlAccounts)
	return accounts, nil
}

func (c *CachedStore) GetAccountByID(ctx context.Context, accountID int64) (*models.M3UAccount, error) {
	key := fmt.Sprintf("account:%d", accountID)
	if v, err := cache.Get[models.M3UAccount](ctx, c.cache, key); err == nil {
		return &v, nil
	}
	a, err := c.inner.GetAccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, a, ttlAccount)
	return a, nil
}

// streamListResult is a helper type to cache the ListStreams tuple.
type streamListResult struct {
	Streams []models.Stream `json:"streams"`
	Total   int             `json:"total"`
}

func (c *CachedStore) ListStreams(ctx context.Context, filter StreamFilter) ([]models.Stream, int, error) {
	key := fmt.Sprintf("streams:%s", filterHash(filter))
	if v, err := cache.Get[streamListResult](ctx, c.cache, key); err == nil {
		return v.Streams, v.Total, nil
	}
	streams, total, err := c.inner.ListStreams(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	c.set(ctx, key, streamListResult{Streams: streams, Total: total}, ttlStreams)
	return streams, total, nil
}

func (c *CachedStore) GetStreamByID(ctx context.Context, streamID int64) (*models.Stream, error) {
	key := fmt.Sprintf("stream:%d", streamID)
	if v, err := cache.Get[models.Stream](ctx, c.cache, key); err == nil {
		return &v, nil
	}
	s, err := c.inner.GetStreamByID(ctx, streamID)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, s, ttlStream)
	return s, nil
}

func (c *CachedStore) ListChannels(ctx context.Context) ([]models.Channel, error) {
	const key = "channels:all"
	if v, err := cache.Get[[]models.Channel](ctx, c.cache, key); err == nil {
		return v, nil
	}
	channels, err := c.inner.ListChannels(ctx)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, channels, ttlChannels)
	return channels, nil
}

func (c *CachedStore) GetChannelByID(ctx context.Context, channelID int64) (*models.Channel, error) {
	key := fmt.Sprintf("channel:%d", channelID)
	if v, err := cache.Get[models.Channel](ctx, c.cache, key); err == nil {
		return &v, nil
	}
	ch, err := c.inner.GetChannelByID(ctx, channelID)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, ch, ttlChannels)
	return ch, nil
}

func (c *CachedStore) ListChannelGroups(ctx context.Context) ([]models.ChannelGroup, error) {
	const key = "groups:all"
	if v, err := cache.Get[[]models.ChannelGroup](ctx, c.cache, key); err == nil {
		return v, nil
	}
	groups, err := c.inner.ListChannelGroups(ctx)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, groups, ttlGroups)
	return groups, nil
}

func (c *CachedStore) GetChannelGroupByID(ctx context.Context, groupID int64) (*models.ChannelGroup, error) {
	key := fmt.Sprintf("group:%d", groupID)
	if v, err := cache.Get[models.ChannelGroup](ctx, c.cache, key); err == nil {
		return &v, nil
	}
	g, err := c.inner.GetChannelGroupByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, g, ttlGroups)
	return g, nil
}

func (c *CachedStore) ListAutoAssignRules(ctx context.Context) ([]models.AutoAssignRule, error) {
	const key = "rules:auto:all"
	if v, err := cache.Get[[]models.AutoAssignRule](ctx, c.cache, key); err == nil {
		return v, nil
	}
	rules, err := c.inner.ListAutoAssignRules(ctx)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, rules, ttlRules)
	return rules, nil
}

func (c *CachedStore) GetAutoAssignRuleByID(ctx context.Context, ruleID int64) (*models.AutoAssignRule, error) {
	key := fmt.Sprintf("rules:auto:%d", ruleID)
	if v, err := cache.Get[models.AutoAssignRule](ctx, c.cache, key); err == nil {
		return &v, nil
	}
	r, err := c.inner.GetAutoAssignRuleByID(ctx, ruleID)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, r, ttlRules)
	return r, nil
}

func (c *CachedStore) ListSortingRules(ctx context.Context) ([]models.SortingRule, error) {
	const key = "rules:sorting:all"
	if v, err := cache.Get[[]models.SortingRule](ctx, c.cache, key); err == nil {
		return v, nil
	}
	rules, err := c.inner.ListSortingRules(ctx)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, rules, ttlRules)
	return rules, nil
}

func (c *CachedStore) GetSortingRuleByID(ctx context.Context, ruleID int64) (*models.SortingRule, error) {
	key := fmt.Sprintf("rules:sorting:%d", ruleID)
	if v, err := cache.Get[models.SortingRule](ctx, c.cache, key); err == nil {
		return &v, nil
	}
	r, err := c.inner.GetSortingRuleByID(ctx, ruleID)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, r, ttlRules)
	return r, nil
}

// GetChannelStreams is deliberately not cached: the orchestrator reads it
// immediately before and after mutating the assignment.
func (c *CachedStore) GetChannelStreams(ctx context.Context, channelID int64) ([]models.Stream, error) {
	return c.inner.GetChannelStreams(ctx, channelID)
}

// --- write operations (invalidate then delegate) ---

func (c *CachedStore) CreateOrGetAccount(ctx context.Context, name, url, userAgent string) (int64, error) {
	c.del(ctx, "accounts:all")
	return c.inner.CreateOrGetAccount(ctx, name, url, userAgent)
}

func (c *CachedStore) UpdateAccount(ctx context.Context, accountID int64, fields AccountUpdate) error {
	c.del(ctx, "accounts:all", fmt.Sprintf("account:%d", accountID))
	return c.inner.UpdateAccount(ctx, accountID, fields)
}

func (c *CachedStore) DeleteAccount(ctx context.Context, accountID int64) error {
	c.del(ctx, "accounts:all", fmt.Sprintf("account:%d", accountID))
	c.delPattern(ctx, "streams:*")
	return c.inner.DeleteAccount(ctx, accountID)
}

func (c *CachedStore) UpdateAccountLastUpdated(ctx context.Context, accountID int64) error {
	c.del(ctx, "accounts:all", fmt.Sprintf("account:%d", accountID))
	return c.inner.UpdateAccountLastUpdated(ctx, accountID)
}

func (c *CachedStore) UpsertStream(ctx context.Context, s *models.Stream) (int64, error) {
	c.delPattern(ctx, "streams:*")
	return c.inner.UpsertStream(ctx, s)
}

func (c *CachedStore) RemoveStaleStreams(ctx context.Context, accountID int64, keepIDs []int64) error {
	c.delPattern(ctx, "streams:*")
	return c.inner.RemoveStaleStreams(ctx, accountID, keepIDs)
}

func (c *CachedStore) UpdateStreamStats(ctx context.Context, streamID int64, stats *models.StreamStats) error {
	c.del(ctx, fmt.Sprintf("stream:%d", streamID))
	c.delPattern(ctx, "streams:*")
	return c.inner.UpdateStreamStats(ctx, streamID, stats)
}

func (c *CachedStore) ClearStreamStats(ctx context.Context, streamID int64) error {
	c.del(ctx, fmt.Sprintf("stream:%d", streamID))
	c.delPattern(ctx, "streams:*")
	return c.inner.ClearStreamStats(ctx, streamID)
}

func (c *CachedStore) CreateChannel(ctx context.Context, ch *models.Channel) (int64, error) {
	c.del(ctx, "channels:all")
	return c.inner.CreateChannel(ctx, ch)
}

func (c *CachedStore) UpdateChannel(ctx context.Context, channelID int64, fields ChannelUpdate) error {
	c.del(ctx, "channels:all", fmt.Sprintf("channel:%d", channelID))
	return c.inner.UpdateChannel(ctx, channelID, fields)
}

func (c *CachedStore) SetChannelStreamOrder(ctx context.Context, channelID int64, streamIDs []int64) error {
	c.del(ctx, "channels:all", fmt.Sprintf("channel:%d", channelID))
	return c.inner.SetChannelStreamOrder(ctx, channelID, streamIDs)
}

func (c *CachedStore) AddStreamToChannel(ctx context.Context, channelID, streamID int64) error {
	c.del(ctx, "channels:all", fmt.Sprintf("channel:%d", channelID))
	return c.inner.AddStreamToChannel(ctx, channelID, streamID)
}

func (c *CachedStore) RemoveStreamFromChannel(ctx context.Context, channelID, streamID int64) error {
	c.del(ctx, "channels:all", fmt.Sprintf("channel:%d", channelID))
	return c.inner.RemoveStreamFromChannel(ctx, channelID, streamID)
}

func (c *CachedStore) CreateChannelGroup(ctx context.Context, g *models.ChannelGroup) (int64, error) {
	c.del(ctx, "groups:all")
	return c.inner.CreateChannelGroup(ctx, g)
}

func (c *CachedStore) UpdateChannelGroup(ctx context.Context, groupID int64, g *models.ChannelGroup) error {
	c.del(ctx, "groups:all", fmt.Sprintf("group:%d", groupID))
	return c.inner.UpdateChannelGroup(ctx, groupID, g)
}

func (c *CachedStore) DeleteChannelGroup(ctx context.Context, groupID int64) error {
	c.del(ctx, "groups:all", fmt.Sprintf("group:%d", groupID))
	return c.inner.DeleteChannelGroup(ctx, groupID)
}

func (c *CachedStore) CreateAutoAssignRule(ctx context.Context, r *models.AutoAssignRule) (int64, error) {
	c.del(ctx, "rules:auto:all")
	return c.inner.CreateAutoAssignRule(ctx, r)
}

func (c *CachedStore) UpdateAutoAssignRule(ctx context.Context, ruleID int64, r *models.AutoAssignRule) error {
	c.del(ctx, "rules:auto:all", fmt.Sprintf("rules:auto:%d", ruleID))
	return c.inner.UpdateAutoAssignRule(ctx, ruleID, r)
}

func (c *CachedStore) DeleteAutoAssignRule(ctx context.Context, ruleID int64) error {
	c.del(ctx, "rules:auto:all", fmt.Sprintf("rules:auto:%d", ruleID))
	return c.inner.DeleteAutoAssignRule(ctx, ruleID)
}

func (c *CachedStore) SetAutoAssignRuleEnabled(ctx context.Context, ruleID int64, enabled bool) error {
	c.del(ctx, "rules:auto:all", fmt.Sprintf("rules:auto:%d", ruleID))
	return c.inner.SetAutoAssignRuleEnabled(ctx, ruleID, enabled)
}

func (c *CachedStore) CreateSortingRule(ctx context.Context, r *models.SortingRule) (int64, error) {
	c.del(ctx, "rules:sorting:all")
	return c.inner.CreateSortingRule(ctx, r)
}

func (c *CachedStore) UpdateSortingRule(ctx context.Context, ruleID int64, r *models.SortingRule) error {
	c.del(ctx, "rules:sorting:all", fmt.Sprintf("rules:sorting:%d", ruleID))
	return c.inner.UpdateSortingRule(ctx, ruleID, r)
}

func (c *CachedStore) DeleteSortingRule(ctx context.Context, ruleID int64) error {
	c.del(ctx, "rules:sorting:all", fmt.Sprintf("rules:sorting:%d", ruleID))
	return c.inner.DeleteSortingRule(ctx, ruleID)
}

func (c *CachedStore) SetSortingRuleEnabled(ctx context.Context, ruleID int64, enabled bool) error {
	c.del(ctx, "rules:sorting:all", fmt.Sprintf("rules:sorting:%d", ruleID))
	return c.inner.SetSortingRuleEnabled(ctx, ruleID, enabled)
}

// --- helpers ---

func (c *CachedStore) set(ctx context.Context, key string, v any, ttl time.Duration) {
	if err := cache.Set(ctx, c.cache, key, v, ttl); err != nil {
		log.Printf("cache: set %s: %v", key, err)
	}
}

func (c *CachedStore) del(ctx context.Context, keys ...string) {
	if err := cache.Del(ctx, c.cache, keys...); err != nil {
		log.Printf("cache: del %v: %v", keys, err)
	}
}

func (c *CachedStore) delPattern(ctx context.Context, pattern string) {
	if err := cache.DelPattern(ctx, c.cache, pattern); err != nil {
		log.Printf("cache: del pattern %s: %v", pattern, err)
	}
}

// filterHash derives a short stable cache key suffix from a stream filter.
func filterHash(f StreamFilter) string {
	acct := int64(-1)
	if f.AccountID != nil {
		acct = *f.AccountID
	}
	tested := "any"
	if f.Tested != nil {
		tested = fmt.Sprintf("%t", *f.Tested)
	}
	raw := fmt.Sprintf("%d|%s|%s|%d|%d", acct, f.Search, tested, f.Limit, f.Offset)
	sum := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%x", sum[:8])
}

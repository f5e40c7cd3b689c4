package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/voyagen/streamplus/internal/models"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// Postgres implements Store using PostgreSQL.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a Postgres store from a DSN. Caller must call Close when done.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Close closes the connection pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

// --- accounts ---

// CreateOrGetAccount creates an M3U account by name if not exists, returns id.
func (p *Postgres) CreateOrGetAccount(ctx context.Context, name, url, userAgent string) (int64, error) {
	var id int64
	err := p.pool.QueryRow(ctx,
		`INSERT INTO m3u_accounts (name, url, user_agent, enabled)
		 VALUES ($1, $2, NULLIF($3,''), true)
		 ON CONFLICT (name) DO UPDATE SET url = EXCLUDED.url, user_agent = EXCLUDED.user_agent
		 RETURNING id`,
		name, url, userAgent,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("CreateOrGetAccount: %w", err)
	}
	return id, nil
}

func (p *Postgres) ListAccounts(ctx context.Context) ([]models.M3UAccount, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, name, COALESCE(url,''), COALESCE(user_agent,''), enabled, last_updated, created_at
		 FROM m3u_accounts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("ListAccounts: %w", err)
	}
	defer rows.Close()

	var accounts []models.M3UAccount
	for rows.Next() {
		var a models.M3UAccount
		if err := rows.Scan(&a.ID, &a.Name, &a.URL, &a.UserAgent, &a.Enabled, &a.LastUpdated, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("ListAccounts scan: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (p *Postgres) GetAccountByID(ctx context.Context, accountID int64) (*models.M3UAccount, error) {
	var a models.M3UAccount
	err := p.pool.QueryRow(ctx,
		`SELECT id, name, COALESCE(url,''), COALESCE(user_agent,''), enabled, last_updated, created_at
		 FROM m3u_accounts WHERE id = $1`, accountID,
	).Scan(&a.ID, &a.Name, &a.URL, &a.UserAgent, &a.Enabled, &a.LastUpdated, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetAccountByID: %w", err)
	}
	return &a, nil
}

func (p *Postgres) UpdateAccount(ctx context.Context, accountID int64, fields AccountUpdate) error {
	tag, err := p.pool.Exec(ctx,
		`UPDATE m3u_accounts SET
		   name = COALESCE($2, name),
		   url = COALESCE($3, url),
		   user_agent = COALESCE($4, user_agent),
		   enabled = COALESCE($5, enabled)
		 WHERE id = $1`,
		accountID, fields.Name, fields.URL, fields.UserAgent, fields.Enabled)
	if err != nil {
		return fmt.Errorf("UpdateAccount: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) DeleteAccount(ctx context.Context, accountID int64) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM m3u_accounts WHERE id = $1`, accountID)
	if err != nil {
		return fmt.Errorf("DeleteAccount: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) UpdateAccountLastUpdated(ctx context.Context, accountID int64) error {
	_, err := p.pool.Exec(ctx, `UPDATE m3u_accounts SET last_updated = NOW() WHERE id = $1`, accountID)
	if err != nil {
		return fmt.Errorf("UpdateAccountLastUpdated: %w", err)
	}
	return nil
}

// --- streams ---

// UpsertStream inserts or updates a stream; returns stream id.
// Stats are deliberately untouched on conflict so a playlist refresh does
// not wipe probe results.
func (p *Postgres) UpsertStream(ctx context.Context, s *models.Stream) (int64, error) {
	var id int64
	err := p.pool.QueryRow(ctx,
		`INSERT INTO streams (name, url, m3u_account_id, group_name, logo)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (name, m3u_account_id, url) DO UPDATE SET
		   group_name = EXCLUDED.group_name, logo = EXCLUDED.logo
		 RETURNING id`,
		s.Name, s.URL, s.M3UAccountID, s.Group, s.Logo,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("UpsertStream: %w", err)
	}
	return id, nil
}

func (p *Postgres) RemoveStaleStreams(ctx context.Context, accountID int64, keepIDs []int64) error {
	_, err := p.pool.Exec(ctx,
		`DELETE FROM streams WHERE m3u_account_id = $1 AND NOT (id = ANY($2))`,
		accountID, keepIDs)
	if err != nil {
		return fmt.Errorf("RemoveStaleStreams: %w", err)
	}
	return nil
}

func (p *Postgres) ListStreams(ctx context.Context, filter StreamFilter) ([]models.Stream, int, error) {
	where := `WHERE 1=1`
	args := []any{}
	n := 0
	arg := func(v any) string {
		args = append(args, v)
		n++
		return fmt.Sprintf("$%d", n)
	}
	if filter.AccountID != nil {
		where += ` AND m3u_account_id = ` + arg(*filter.AccountID)
	}
	if filter.Search != "" {
		where += ` AND name ILIKE ` + arg("%"+filter.Search+"%")
	}
	if filter.Tested != nil {
		if *filter.Tested {
			where += ` AND stats IS NOT NULL`
		} else {
			where += ` AND stats IS NULL`
		}
	}

	var total int
	if err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM streams `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("ListStreams count: %w", err)
	}

	query := `SELECT id, name, url, m3u_account_id, group_name, logo, stats FROM streams ` + where +
		` ORDER BY id`
	if filter.Limit > 0 {
		query += ` LIMIT ` + arg(filter.Limit)
	}
	if filter.Offset > 0 {
		query += ` OFFSET ` + arg(filter.Offset)
	}
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("ListStreams: %w", err)
	}
	defer rows.Close()

	var streams []models.Stream
	for rows.Next() {
		s, err := scanStream(rows)
		if err != nil {
			return nil, 0, err
		}
		streams = append(streams, *s)
	}
	return streams, total, rows.Err()
}

func (p *Postgres) GetStreamByID(ctx context.Context, streamID int64) (*models.Stream, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT id, name, url, m3u_account_id, group_name, logo, stats FROM streams WHERE id = $1`,
		streamID)
	s, err := scanStream(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return s, err
}

func (p *Postgres) UpdateStreamStats(ctx context.Context, streamID int64, stats *models.StreamStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("UpdateStreamStats marshal: %w", err)
	}
	tag, err := p.pool.Exec(ctx, `UPDATE streams SET stats = $2 WHERE id = $1`, streamID, data)
	if err != nil {
		return fmt.Errorf("UpdateStreamStats: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) ClearStreamStats(ctx context.Context, streamID int64) error {
	tag, err := p.pool.Exec(ctx, `UPDATE streams SET stats = NULL WHERE id = $1`, streamID)
	if err != nil {
		return fmt.Errorf("ClearStreamStats: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type pgxRow interface {
	Scan(dest ...any) error
}

func scanStream(row pgxRow) (*models.Stream, error) {
	var s models.Stream
	var stats []byte
	if err := row.Scan(&s.ID, &s.Name, &s.URL, &s.M3UAccountID, &s.Group, &s.Logo, &stats); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan stream: %w", err)
	}
	if len(stats) > 0 {
		s.Stats = &models.StreamStats{}
		if err := json.Unmarshal(stats, s.Stats); err != nil {
			return nil, fmt.Errorf("scan stream stats: %w", err)
		}
	}
	return &s, nil
}

// --- channels ---

func (p *Postgres) ListChannels(ctx context.Context) ([]models.Channel, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT c.id, c.name, c.channel_number, c.logo,
		        COALESCE(array_agg(cs.stream_id ORDER BY cs.position) FILTER (WHERE cs.stream_id IS NOT NULL), '{}')
		 FROM channels c
		 LEFT JOIN channel_streams cs ON cs.channel_id = c.id
		 GROUP BY c.id ORDER BY c.id`)
	if err != nil {
		return nil, fmt.Errorf("ListChannels: %w", err)
	}
	defer rows.Close()

	var channels []models.Channel
	for rows.Next() {
		var c models.Channel
		if err := rows.Scan(&c.ID, &c.Name, &c.Number, &c.Logo, &c.StreamIDs); err != nil {
			return nil, fmt.Errorf("ListChannels scan: %w", err)
		}
		channels = append(channels, c)
	}
	return channels, rows.Err()
}

func (p *Postgres) GetChannelByID(ctx context.Context, channelID int64) (*models.Channel, error) {
	var c models.Channel
	err := p.pool.QueryRow(ctx,
		`SELECT c.id, c.name, c.channel_number, c.logo,
		        COALESCE(array_agg(cs.stream_id ORDER BY cs.position) FILTER (WHERE cs.stream_id IS NOT NULL), '{}')
		 FROM channels c
		 LEFT JOIN channel_streams cs ON cs.channel_id = c.id
		 WHERE c.id = $1 GROUP BY c.id`, channelID,
	).Scan(&c.ID, &c.Name, &c.Number, &c.Logo, &c.StreamIDs)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetChannelByID: %w", err)
	}
	return &c, nil
}

func (p *Postgres) CreateChannel(ctx context.Context, ch *models.Channel) (int64, error) {
	var id int64
	err := p.pool.QueryRow(ctx,
		`INSERT INTO channels (name, channel_number, logo) VALUES ($1, $2, $3) RETURNING id`,
		ch.Name, ch.Number, ch.Logo,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("CreateChannel: %w", err)
	}
	return id, nil
}

func (p *Postgres) UpdateChannel(ctx context.Context, channelID int64, fields ChannelUpdate) error {
	tag, err := p.pool.Exec(ctx,
		`UPDATE channels SET
		   name = COALESCE($2, name),
		   channel_number = COALESCE($3, channel_number),
		   logo = COALESCE($4, logo)
		 WHERE id = $1`,
		channelID, fields.Name, fields.Number, fields.Logo)
	if err != nil {
		return fmt.Errorf("UpdateChannel: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) GetChannelStreams(ctx context.Context, channelID int64) ([]models.Stream, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT s.id, s.name, s.url, s.m3u_account_id, s.group_name, s.logo, s.stats
		 FROM channel_streams cs
		 JOIN streams s ON s.id = cs.stream_id
		 WHERE cs.channel_id = $1
		 ORDER BY cs.position`, channelID)
	if err != nil {
		return nil, fmt.Errorf("GetChannelStreams: %w", err)
	}
	defer rows.Close()

	var streams []models.Stream
	for rows.Next() {
		s, err := scanStream(rows)
		if err != nil {
			return nil, err
		}
		streams = append(streams, *s)
	}
	return streams, rows.Err()
}

// SetChannelStreamOrder replaces the channel's assignment in one
// transaction so readers never observe a partially written order.
func (p *Postgres) SetChannelStreamOrder(ctx context.Context, channelID int64, streamIDs []int64) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("SetChannelStreamOrder begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM channel_streams WHERE channel_id = $1`, channelID); err != nil {
		return fmt.Errorf("SetChannelStreamOrder delete: %w", err)
	}
	for i, sid := range streamIDs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO channel_streams (channel_id, stream_id, position) VALUES ($1, $2, $3)`,
			channelID, sid, i); err != nil {
			return fmt.Errorf("SetChannelStreamOrder insert %d: %w", sid, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("SetChannelStreamOrder commit: %w", err)
	}
	return nil
}

func (p *Postgres) AddStreamToChannel(ctx context.Context, channelID, streamID int64) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO channel_streams (channel_id, stream_id, position)
		 SELECT $1, $2, COALESCE(MAX(position) + 1, 0) FROM channel_streams WHERE channel_id = $1
		 ON CONFLICT (channel_id, stream_id) DO NOTHING`,
		channelID, streamID)
	if err != nil {
		return fmt.Errorf("AddStreamToChannel: %w", err)
	}
	return nil
}

func (p *Postgres) RemoveStreamFromChannel(ctx context.Context, channelID, streamID int64) error {
	tag, err := p.pool.Exec(ctx,
		`DELETE FROM channel_streams WHERE channel_id = $1 AND stream_id = $2`,
		channelID, streamID)
	if err != nil {
		return fmt.Errorf("RemoveStreamFromChannel: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- channel groups ---

func (p *Postgres) ListChannelGroups(ctx context.Context) ([]models.ChannelGroup, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT g.id, g.name, g.description,
		        COALESCE(array_agg(m.channel_id ORDER BY m.channel_id) FILTER (WHERE m.channel_id IS NOT NULL), '{}')
		 FROM channel_groups g
		 LEFT JOIN channel_group_members m ON m.group_id = g.id
		 GROUP BY g.id ORDER BY g.id`)
	if err != nil {
		return nil, fmt.Errorf("ListChannelGroups: %w", err)
	}
	defer rows.Close()

	var groups []models.ChannelGroup
	for rows.Next() {
		var g models.ChannelGroup
		if err := rows.Scan(&g.ID, &g.Name, &g.Description, &g.ChannelIDs); err != nil {
			return nil, fmt.Errorf("ListChannelGroups scan: %w", err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func (p *Postgres) GetChannelGroupByID(ctx context.Context, groupID int64) (*models.ChannelGroup, error) {
	var g models.ChannelGroup
	err := p.pool.QueryRow(ctx,
		`SELECT g.id, g.name, g.description,
		        COALESCE(array_agg(m.channel_id ORDER BY m.channel_id) FILTER (WHERE m.channel_id IS NOT NULL), '{}')
		 FROM channel_groups g
		 LEFT JOIN channel_group_members m ON m.group_id = g.id
		 WHERE g.id = $1 GROUP BY g.id`, groupID,
	).Scan(&g.ID, &g.Name, &g.Description, &g.ChannelIDs)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetChannelGroupByID: %w", err)
	}
	return &g, nil
}

func (p *Postgres) CreateChannelGroup(ctx context.Context, g *models.ChannelGroup) (int64, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("CreateChannelGroup begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var id int64
	err = tx.QueryRow(ctx,
		`INSERT INTO channel_groups (name, description) VALUES ($1, $2) RETURNING id`,
		g.Name, g.Description,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("CreateChannelGroup: %w", err)
	}
	if err := insertGroupMembers(ctx, tx, id, g.ChannelIDs); err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("CreateChannelGroup commit: %w", err)
	}
	return id, nil
}

func (p *Postgres) UpdateChannelGroup(ctx context.Context, groupID int64, g *models.ChannelGroup) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("UpdateChannelGroup begin: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE channel_groups SET name = $2, description = $3 WHERE id = $1`,
		groupID, g.Name, g.Description)
	if err != nil {
		return fmt.Errorf("UpdateChannelGroup: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	if _, err := tx.Exec(ctx, `DELETE FROM channel_group_members WHERE group_id = $1`, groupID); err != nil {
		return fmt.Errorf("UpdateChannelGroup members: %w", err)
	}
	if err := insertGroupMembers(ctx, tx, groupID, g.ChannelIDs); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("UpdateChannelGroup commit: %w", err)
	}
	return nil
}

func (p *Postgres) DeleteChannelGroup(ctx context.Context, groupID int64) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM channel_groups WHERE id = $1`, groupID)
	if err != nil {
		return fmt.Errorf("DeleteChannelGroup: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func insertGroupMembers(ctx context.Context, tx pgx.Tx, groupID int64, channelIDs []int64) error {
	for _, cid := range channelIDs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO channel_group_members (group_id, channel_id) VALUES ($1, $2)
			 ON CONFLICT DO NOTHING`, groupID, cid); err != nil {
			return fmt.Errorf("insert group member %d: %w", cid, err)
		}
	}
	return nil
}

// --- auto-assign rules ---

// Rules persist as a JSON document plus a few indexed columns, so the
// schema does not churn every time a predicate field is added.

func (p *Postgres) ListAutoAssignRules(ctx context.Context) ([]models.AutoAssignRule, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, definition FROM auto_assign_rules ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("ListAutoAssignRules: %w", err)
	}
	defer rows.Close()

	var out []models.AutoAssignRule
	for rows.Next() {
		r, err := scanJSONRule[models.AutoAssignRule](rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func (p *Postgres) GetAutoAssignRuleByID(ctx context.Context, ruleID int64) (*models.AutoAssignRule, error) {
	row := p.pool.QueryRow(ctx, `SELECT id, definition FROM auto_assign_rules WHERE id = $1`, ruleID)
	r, err := scanJSONRule[models.AutoAssignRule](row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return r, err
}

func (p *Postgres) CreateAutoAssignRule(ctx context.Context, r *models.AutoAssignRule) (int64, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return 0, fmt.Errorf("CreateAutoAssignRule marshal: %w", err)
	}
	var id int64
	err = p.pool.QueryRow(ctx,
		`INSERT INTO auto_assign_rules (name, channel_id, enabled, definition)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		r.Name, r.ChannelID, r.Enabled, data,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("CreateAutoAssignRule: %w", err)
	}
	return id, nil
}

func (p *Postgres) UpdateAutoAssignRule(ctx context.Context, ruleID int64, r *models.AutoAssignRule) error {
	r.ID = ruleID
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("UpdateAutoAssignRule marshal: %w", err)
	}
	tag, err := p.pool.Exec(ctx,
		`UPDATE auto_assign_rules SET name = $2, channel_id = $3, enabled = $4, definition = $5 WHERE id = $1`,
		ruleID, r.Name, r.ChannelID, r.Enabled, data)
	if err != nil {
		return fmt.Errorf("UpdateAutoAssignRule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) DeleteAutoAssignRule(ctx context.Context, ruleID int64) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM auto_assign_rules WHERE id = $1`, ruleID)
	if err != nil {
		return fmt.Errorf("DeleteAutoAssignRule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) SetAutoAssignRuleEnabled(ctx context.Context, ruleID int64, enabled bool) error {
	tag, err := p.pool.Exec(ctx,
		`UPDATE auto_assign_rules SET enabled = $2,
		   definition = jsonb_set(definition, '{enabled}', to_jsonb($2))
		 WHERE id = $1`, ruleID, enabled)
	if err != nil {
		return fmt.Errorf("SetAutoAssignRuleEnabled: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- sorting rules ---

func (p *Postgres) ListSortingRules(ctx context.Context) ([]models.SortingRule, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, definition FROM sorting_rules ORDER BY execution_order, id`)
	if err != nil {
		return nil, fmt.Errorf("ListSortingRules: %w", err)
	}
	defer rows.Close()

	var out []models.SortingRule
	for rows.Next() {
		r, err := scanJSONRule[models.SortingRule](rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func (p *Postgres) GetSortingRuleByID(ctx context.Context, ruleID int64) (*models.SortingRule, error) {
	row := p.pool.QueryRow(ctx, `SELECT id, definition FROM sorting_rules WHERE id = $1`, ruleID)
	r, err := scanJSONRule[models.SortingRule](row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return r, err
}

func (p *Postgres) CreateSortingRule(ctx context.Context, r *models.SortingRule) (int64, error) {
	if r.ExecutionOrder == 0 {
		r.ExecutionOrder = models.DefaultExecutionOrder
	}
	data, err := json.Marshal(r)
	if err != nil {
		return 0, fmt.Errorf("CreateSortingRule marshal: %w", err)
	}
	var id int64
	err = p.pool.QueryRow(ctx,
		`INSERT INTO sorting_rules (name, enabled, execution_order, definition)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		r.Name, r.Enabled, r.ExecutionOrder, data,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("CreateSortingRule: %w", err)
	}
	return id, nil
}

func (p *Postgres) UpdateSortingRule(ctx context.Context, ruleID int64, r *models.SortingRule) error {
	r.ID = ruleID
	if r.ExecutionOrder == 0 {
		r.ExecutionOrder = models.DefaultExecutionOrder
	}
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("UpdateSortingRule marshal: %w", err)
	}
	tag, err := p.pool.Exec(ctx,
		`UPDATE sorting_rules SET name = $2, enabled = $3, execution_order = $4, definition = $5 WHERE id = $1`,
		ruleID, r.Name, r.Enabled, r.ExecutionOrder, data)
	if err != nil {
		return fmt.Errorf("UpdateSortingRule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) DeleteSortingRule(ctx context.Context, ruleID int64) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM sorting_rules WHERE id = $1`, ruleID)
	if err != nil {
		return fmt.Errorf("DeleteSortingRule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) SetSortingRuleEnabled(ctx context.Context, ruleID int64, enabled bool) error {
	tag, err := p.pool.Exec(ctx,
		`UPDATE sorting_rules SET enabled = $2,
		   definition = jsonb_set(definition, '{enabled}', to_jsonb($2))
		 WHERE id = $1`, ruleID, enabled)
	if err != nil {
		return fmt.Errorf("SetSortingRuleEnabled: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// scanJSONRule decodes an (id, definition) row into a rule value, forcing
// the id column over whatever the stored document says.
func scanJSONRule[T any](row pgxRow) (*T, error) {
	var id int64
	var data []byte
	if err := row.Scan(&id, &data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan rule: %w", err)
	}
	var r T
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode rule %d: %w", id, err)
	}
	setRuleID(&r, id)
	return &r, nil
}

func setRuleID(r any, id int64) {
	switch t := r.(type) {
	case *models.AutoAssignRule:
		t.ID = id
	case *models.SortingRule:
		t.ID = id
	}
}

package engine

import (
	"context"
	"fmt"
	"log"
	"slices"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/voyagen/streamplus/internal/models"
	"github.com/voyagen/streamplus/internal/prober"
	"github.com/voyagen/streamplus/internal/progress"
	"github.com/voyagen/streamplus/internal/rules"
	"github.com/voyagen/streamplus/internal/store"
)

const (
	// executionRetention keeps a finished execution queryable for a short
	// while after its terminal event, matching the feed retention window.
	executionRetention = 2 * time.Minute

	defaultTestConcurrency = 4

	// disableAccountMinProbes guards the dead-account heuristic: an
	// account is disabled only when at least this many of its streams
	// were probed in one run and every probe failed.
	disableAccountMinProbes = 3
)

// Orchestrator runs rule executions: it resolves scope, probes streams,
// matches or scores them, and writes the resulting assignments back to the
// store, publishing progress events along the way. Executions run to their
// terminal state regardless of whether anyone is watching the feed.
type Orchestrator struct {
	store           store.Store
	prober          prober.Prober
	hub             *progress.Hub
	locker          Locker
	testConcurrency int
	now             func() time.Time

	mu         sync.Mutex
	executions map[string]*Execution
}

// New creates an Orchestrator. locker may be nil, in which case an
// in-process locker is used. testConcurrency bounds parallel probes;
// values below 1 fall back to the default.
func New(st store.Store, pr prober.Prober, hub *progress.Hub, locker Locker, testConcurrency int) *Orchestrator {
	if locker == nil {
		locker = NewLocalLocker()
	}
	if testConcurrency < 1 {
		testConcurrency = defaultTestConcurrency
	}
	return &Orchestrator{
		store:           st,
		prober:          pr,
		hub:             hub,
		locker:          locker,
		testConcurrency: testConcurrency,
		now:             time.Now,
		executions:      make(map[string]*Execution),
	}
}

// Execution returns a registered execution by id.
func (o *Orchestrator) Execution(id string) (*Execution, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	e, ok := o.executions[id]
	return e, ok
}

func (o *Orchestrator) register(exec *Execution) {
	o.mu.Lock()
	o.executions[exec.ID] = exec
	o.mu.Unlock()
}

func (o *Orchestrator) retire(exec *Execution) {
	time.AfterFunc(executionRetention, func() {
		o.mu.Lock()
		delete(o.executions, exec.ID)
		o.mu.Unlock()
	})
}

// AutoAssignSummary is the outcome of one auto-assign execution. It is
// carried both in the terminal progress event and in synchronous API
// responses.
type AutoAssignSummary struct {
	Success      bool     `json:"success"`
	Message      string   `json:"message"`
	MatchesFound int      `json:"matches_found"`
	StreamsAdded int      `json:"streams_added"`
	FailedTests  int      `json:"failed_tests,omitempty"`
	Errors       []string `json:"errors,omitempty"`
}

// SortingSummary is the outcome of one sorting execution. Per-channel
// failures are recorded in ProcessedChannels and Errors without failing
// the execution as a whole.
type SortingSummary struct {
	Success           bool                      `json:"success"`
	Message           string                    `json:"message"`
	ProcessedChannels []progress.ChannelOutcome `json:"processed_channels"`
	FailedTests       int                       `json:"failed_tests,omitempty"`
	Errors            []string                  `json:"errors,omitempty"`
}

// AllRulesSummary is the outcome of an execute-all run.
type AllRulesSummary struct {
	Success  bool     `json:"success"`
	Message  string   `json:"message"`
	RulesRun int      `json:"rules_run"`
	Errors   []string `json:"errors,omitempty"`
}

// AutoAssignPreview is the dry-run result of an auto-assign rule: the
// classified buckets plus candidate counts. No streams are probed and
// nothing is written.
type AutoAssignPreview struct {
	rules.MatchResult
	TotalCandidates int `json:"total_candidates"`
	MatchesFound    int `json:"matches_found"`
}

// ChannelPreview is the dry-run scoring of one channel under a sorting rule.
type ChannelPreview struct {
	ChannelID         int64                `json:"channel_id"`
	ChannelName       string               `json:"channel_name"`
	Streams           []rules.ScoredStream `json:"streams"`
	ScoreDistribution map[int]int          `json:"score_distribution"`
}

// SortingPreview is the dry-run result of a sorting rule over its scope.
type SortingPreview struct {
	Channels         []ChannelPreview `json:"channels"`
	MaxPossibleScore int              `json:"max_possible_score"`
}

// StartAutoAssign launches an auto-assign execution in the background and
// returns immediately. Progress is observable through the hub under the
// returned execution's id.
func (o *Orchestrator) StartAutoAssign(rule *models.AutoAssignRule) *Execution {
	exec := newExecution("auto_assign", rule.ID, nil)
	exec.feed = o.hub.CreateFeed(exec.ID)
	o.register(exec)
	go func() {
		// Deliberately detached from the request context: an execution
		// runs to its terminal state even if the client disconnects.
		o.runAutoAssign(context.Background(), exec, rule)
		o.retire(exec)
	}()
	return exec
}

// RunAutoAssign executes an auto-assign rule synchronously without a
// progress feed and returns its summary.
func (o *Orchestrator) RunAutoAssign(ctx context.Context, rule *models.AutoAssignRule) AutoAssignSummary {
	exec := newExecution("auto_assign", rule.ID, nil)
	o.register(exec)
	defer o.retire(exec)
	return o.runAutoAssign(ctx, exec, rule)
}

func (o *Orchestrator) runAutoAssign(ctx context.Context, exec *Execution, rule *models.AutoAssignRule) AutoAssignSummary {
	exec.setState(StateResolvingScope)
	exec.publish(progress.Event{
		Type:    progress.TypeStart,
		Message: fmt.Sprintf("Executing auto-assign rule %q", rule.Name),
	})

	channel, err := o.store.GetChannelByID(ctx, rule.ChannelID)
	if err != nil {
		return o.failAutoAssign(exec, fmt.Sprintf("target channel %d: %v", rule.ChannelID, err))
	}

	all, _, err := o.store.ListStreams(ctx, store.StreamFilter{})
	if err != nil {
		return o.failAutoAssign(exec, fmt.Sprintf("load streams: %v", err))
	}
	candidates, err := rules.Prefilter(rule, all)
	if err != nil {
		return o.failAutoAssign(exec, err.Error())
	}
	exec.publish(progress.Event{
		Type:         progress.TypeInfo,
		Message:      fmt.Sprintf("%d of %d streams pass the name and account filters", len(candidates), len(all)),
		TotalStreams: len(candidates),
	})

	var summary AutoAssignSummary
	opts := rule.TestOptions()
	if opts.TestStreams {
		exec.setState(StateTesting)
		summary.FailedTests = o.testStreams(ctx, candidates, opts, exec)
	}

	exec.setState(StateMatching)
	exec.publish(progress.Event{
		Type:        progress.TypeMatching,
		Message:     fmt.Sprintf("Matching %d streams against rule conditions", len(candidates)),
		ChannelID:   channel.ID,
		ChannelName: channel.Name,
	})
	result, err := rules.Match(rule, candidates)
	if err != nil {
		return o.failAutoAssign(exec, err.Error())
	}
	summary.MatchesFound = result.MatchCount()
	exec.publish(progress.Event{
		Type: progress.TypeDebug,
		Message: fmt.Sprintf("%d fully matching, %d regex-only, %d missing stats",
			len(result.FullyMatching), len(result.RegexOnly), len(result.NoStats)),
	})

	exec.setState(StateAssigning)
	exec.publish(progress.Event{
		Type:        progress.TypeAssigning,
		Message:     fmt.Sprintf("Assigning %d streams to channel %q", summary.MatchesFound, channel.Name),
		ChannelID:   channel.ID,
		ChannelName: channel.Name,
	})

	added, err := o.assignStreams(ctx, channel, result.FullyMatching, rule.ReplaceExistingStreams)
	if err != nil {
		return o.failAutoAssign(exec, fmt.Sprintf("assign streams to channel %d: %v", channel.ID, err))
	}
	summary.StreamsAdded = added

	exec.publish(progress.Event{
		Type:        progress.TypeUpdating,
		Message:     fmt.Sprintf("Channel %q updated: %d streams added", channel.Name, added),
		ChannelID:   channel.ID,
		ChannelName: channel.Name,
	})

	summary.Success = true
	summary.Message = fmt.Sprintf("Rule %q: %d matches, %d streams added", rule.Name, summary.MatchesFound, summary.StreamsAdded)
	exec.setState(StateComplete)
	exec.publish(progress.Event{
		Type:         progress.TypeComplete,
		Message:      summary.Message,
		Success:      &summary.Success,
		MatchesFound: &summary.MatchesFound,
		StreamsAdded: &summary.StreamsAdded,
		Errors:       summary.Errors,
	})
	return summary
}

func (o *Orchestrator) failAutoAssign(exec *Execution, msg string) AutoAssignSummary {
	log.Printf("engine: auto-assign execution %s failed: %s", exec.ID, msg)
	exec.setState(StateFailed)
	exec.publish(progress.Event{Type: progress.TypeError, Message: msg})
	return AutoAssignSummary{Message: msg, Errors: []string{msg}}
}

// assignStreams writes the matched streams to the channel under the
// channel's assignment lock. Replace mode swaps the whole assignment;
// append mode adds only streams not already present, after the existing
// ones.
func (o *Orchestrator) assignStreams(ctx context.Context, channel *models.Channel, matched []models.Stream, replace bool) (int, error) {
	unlock, err := o.locker.Lock(ctx, fmt.Sprintf("assign:channel:%d", channel.ID))
	if err != nil {
		return 0, fmt.Errorf("acquire assignment lock: %w", err)
	}
	defer unlock()

	matchedIDs := make([]int64, len(matched))
	for i, s := range matched {
		matchedIDs[i] = s.ID
	}

	if replace {
		if err := o.store.SetChannelStreamOrder(ctx, channel.ID, matchedIDs); err != nil {
			return 0, err
		}
		return len(matchedIDs), nil
	}

	current, err := o.store.GetChannelByID(ctx, channel.ID)
	if err != nil {
		return 0, err
	}
	added := 0
	for _, id := range matchedIDs {
		if slices.Contains(current.StreamIDs, id) {
			continue
		}
		if err := o.store.AddStreamToChannel(ctx, channel.ID, id); err != nil {
			return added, err
		}
		added++
	}
	return added, nil
}

// PreviewAutoAssign classifies the catalog against the rule without
// probing or writing anything. Safe to call repeatedly.
func (o *Orchestrator) PreviewAutoAssign(ctx context.Context, rule *models.AutoAssignRule) (*AutoAssignPreview, error) {
	all, _, err := o.store.ListStreams(ctx, store.StreamFilter{})
	if err != nil {
		return nil, fmt.Errorf("load streams: %w", err)
	}
	result, err := rules.Match(rule, all)
	if err != nil {
		return nil, err
	}
	return &AutoAssignPreview{
		MatchResult:     *result,
		TotalCandidates: len(all),
		MatchesFound:    result.MatchCount(),
	}, nil
}

// StartSorting launches a sorting execution in the background. When
// channelID is non-nil the scope is narrowed to that single channel.
func (o *Orchestrator) StartSorting(rule *models.SortingRule, channelID *int64) *Execution {
	exec := newExecution("sorting", rule.ID, nil)
	exec.feed = o.hub.CreateFeed(exec.ID)
	o.register(exec)
	go func() {
		o.runSorting(context.Background(), exec, rule, channelID)
		o.retire(exec)
	}()
	return exec
}

// RunSorting executes a sorting rule synchronously without a progress feed.
func (o *Orchestrator) RunSorting(ctx context.Context, rule *models.SortingRule, channelID *int64) SortingSummary {
	exec := newExecution("sorting", rule.ID, nil)
	o.register(exec)
	defer o.retire(exec)
	return o.runSorting(ctx, exec, rule, channelID)
}

func (o *Orchestrator) runSorting(ctx context.Context, exec *Execution, rule *models.SortingRule, channelID *int64) SortingSummary {
	exec.publish(progress.Event{
		Type:    progress.TypeStart,
		Message: fmt.Sprintf("Executing sorting rule %q", rule.Name),
	})
	summary := o.sortChannels(ctx, exec, rule, channelID)

	exec.publish(progress.Event{
		Type:              progress.TypeComplete,
		Message:           summary.Message,
		Success:           &summary.Success,
		ProcessedChannels: summary.ProcessedChannels,
		Errors:            summary.Errors,
	})
	return summary
}

// sortChannels runs the scoring pipeline over the rule's channel scope.
// It publishes per-channel progress but never a terminal event; callers
// own the start/complete framing.
func (o *Orchestrator) sortChannels(ctx context.Context, exec *Execution, rule *models.SortingRule, channelID *int64) SortingSummary {
	var summary SortingSummary

	exec.setState(StateResolvingScope)
	channels, errs := o.resolveScope(ctx, rule, channelID)
	summary.Errors = errs
	if len(channels) == 0 && len(errs) > 0 {
		exec.setState(StateFailed)
		summary.Message = "no channels could be resolved"
		return summary
	}

	for _, ch := range channels {
		outcome := o.sortOneChannel(ctx, exec, rule, ch, &summary)
		summary.ProcessedChannels = append(summary.ProcessedChannels, outcome)
		if outcome.Error != "" {
			summary.Errors = append(summary.Errors, fmt.Sprintf("channel %d: %s", ch.ID, outcome.Error))
		}
	}

	sorted := 0
	for _, c := range summary.ProcessedChannels {
		if c.Error == "" && !c.Skipped {
			sorted++
		}
	}
	summary.Success = true
	summary.Message = fmt.Sprintf("Rule %q: sorted %d of %d channels", rule.Name, sorted, len(channels))
	exec.setState(StateComplete)
	return summary
}

func (o *Orchestrator) sortOneChannel(ctx context.Context, exec *Execution, rule *models.SortingRule, ch models.Channel, summary *SortingSummary) progress.ChannelOutcome {
	outcome := progress.ChannelOutcome{ChannelID: ch.ID, ChannelName: ch.Name}

	streams, err := o.store.GetChannelStreams(ctx, ch.ID)
	if err != nil {
		outcome.Error = fmt.Sprintf("load streams: %v", err)
		return outcome
	}
	exec.publish(progress.Event{
		Type:         progress.TypeChannelStart,
		ChannelID:    ch.ID,
		ChannelName:  ch.Name,
		TotalStreams: len(streams),
		Message:      fmt.Sprintf("Sorting channel %q (%d streams)", ch.Name, len(streams)),
	})
	if len(streams) == 0 {
		outcome.Skipped = true
		exec.publish(progress.Event{
			Type:        progress.TypeChannelComplete,
			ChannelID:   ch.ID,
			ChannelName: ch.Name,
			Message:     "No streams assigned, skipping",
		})
		return outcome
	}

	opts := rule.TestOptions()
	if opts.TestStreams {
		exec.setState(StateTesting)
		summary.FailedTests += o.testStreams(ctx, streams, opts, exec)
	}

	exec.setState(StateScoring)
	exec.publish(progress.Event{
		Type:        progress.TypeSorting,
		ChannelID:   ch.ID,
		ChannelName: ch.Name,
		Message:     fmt.Sprintf("Scoring %d streams", len(streams)),
	})
	scored := rules.Rank(streams, rule.Conditions)
	order := make([]int64, len(scored))
	for i, s := range scored {
		order[i] = s.Stream.ID
	}

	exec.setState(StateAssigning)
	exec.publish(progress.Event{
		Type:        progress.TypeAssigning,
		ChannelID:   ch.ID,
		ChannelName: ch.Name,
		Message:     "Writing new stream order",
	})
	if err := o.writeChannelOrder(ctx, ch.ID, order); err != nil {
		outcome.Error = fmt.Sprintf("write order: %v", err)
		return outcome
	}

	outcome.SortedCount = len(order)
	exec.publish(progress.Event{
		Type:        progress.TypeChannelComplete,
		ChannelID:   ch.ID,
		ChannelName: ch.Name,
		Message:     fmt.Sprintf("Channel %q sorted (%d streams)", ch.Name, len(order)),
	})
	return outcome
}

func (o *Orchestrator) writeChannelOrder(ctx context.Context, channelID int64, order []int64) error {
	unlock, err := o.locker.Lock(ctx, fmt.Sprintf("assign:channel:%d", channelID))
	if err != nil {
		return fmt.Errorf("acquire assignment lock: %w", err)
	}
	defer unlock()
	return o.store.SetChannelStreamOrder(ctx, channelID, order)
}

// resolveScope expands a sorting rule's channel scope: explicit ids,
// group members, and every channel when AllChannels is set, deduplicated
// and ordered by ascending id. An unresolvable group or channel id is
// skipped and reported, never fatal.
func (o *Orchestrator) resolveScope(ctx context.Context, rule *models.SortingRule, channelID *int64) ([]models.Channel, []string) {
	var errs []string

	if channelID != nil {
		ch, err := o.store.GetChannelByID(ctx, *channelID)
		if err != nil {
			return nil, []string{fmt.Sprintf("channel %d: %v", *channelID, err)}
		}
		return []models.Channel{*ch}, nil
	}

	if rule.AllChannels {
		channels, err := o.store.ListChannels(ctx)
		if err != nil {
			return nil, []string{fmt.Sprintf("list channels: %v", err)}
		}
		return channels, nil
	}

	ids := make(map[int64]bool)
	for _, id := range rule.ChannelIDs {
		ids[id] = true
	}
	for _, gid := range rule.ChannelGroupIDs {
		group, err := o.store.GetChannelGroupByID(ctx, gid)
		if err != nil {
			errs = append(errs, fmt.Sprintf("channel group %d: %v", gid, err))
			continue
		}
		for _, id := range group.ChannelIDs {
			ids[id] = true
		}
	}

	ordered := make([]int64, 0, len(ids))
	for id := range ids {
		ordered = append(ordered, id)
	}
	slices.Sort(ordered)

	var channels []models.Channel
	for _, id := range ordered {
		ch, err := o.store.GetChannelByID(ctx, id)
		if err != nil {
			errs = append(errs, fmt.Sprintf("channel %d: %v", id, err))
			continue
		}
		channels = append(channels, *ch)
	}
	return channels, errs
}

// PreviewSorting scores the rule's scope without probing or writing.
func (o *Orchestrator) PreviewSorting(ctx context.Context, rule *models.SortingRule, channelID *int64) (*SortingPreview, error) {
	channels, errs := o.resolveScope(ctx, rule, channelID)
	if len(channels) == 0 && len(errs) > 0 {
		return nil, fmt.Errorf("resolve scope: %s", errs[0])
	}

	preview := &SortingPreview{MaxPossibleScore: rule.MaxPossibleScore()}
	for _, ch := range channels {
		streams, err := o.store.GetChannelStreams(ctx, ch.ID)
		if err != nil {
			return nil, fmt.Errorf("channel %d streams: %w", ch.ID, err)
		}
		scored := rules.Rank(streams, rule.Conditions)
		preview.Channels = append(preview.Channels, ChannelPreview{
			ChannelID:         ch.ID,
			ChannelName:       ch.Name,
			Streams:           scored,
			ScoreDistribution: rules.ScoreDistribution(scored),
		})
	}
	return preview, nil
}

// StartAllRules launches an execute-all run over every enabled sorting
// rule, ordered by execution_order then id.
func (o *Orchestrator) StartAllRules() *Execution {
	exec := newExecution("all_rules", 0, nil)
	exec.feed = o.hub.CreateFeed(exec.ID)
	o.register(exec)
	go func() {
		o.runAllRules(context.Background(), exec)
		o.retire(exec)
	}()
	return exec
}

// RunAllRules executes every enabled sorting rule synchronously.
func (o *Orchestrator) RunAllRules(ctx context.Context) AllRulesSummary {
	exec := newExecution("all_rules", 0, nil)
	o.register(exec)
	defer o.retire(exec)
	return o.runAllRules(ctx, exec)
}

func (o *Orchestrator) runAllRules(ctx context.Context, exec *Execution) AllRulesSummary {
	var summary AllRulesSummary

	all, err := o.store.ListSortingRules(ctx)
	if err != nil {
		msg := fmt.Sprintf("list sorting rules: %v", err)
		exec.setState(StateFailed)
		exec.publish(progress.Event{Type: progress.TypeError, Message: msg})
		summary.Message = msg
		summary.Errors = []string{msg}
		return summary
	}
	enabled := make([]models.SortingRule, 0, len(all))
	for _, r := range all {
		if r.Enabled {
			enabled = append(enabled, r)
		}
	}
	// The store contract already orders rules, but the run order is a
	// correctness property; re-sort so a cache replay or an alternate
	// backend cannot change it.
	slices.SortStableFunc(enabled, func(a, b models.SortingRule) int {
		if a.ExecutionOrder != b.ExecutionOrder {
			return a.ExecutionOrder - b.ExecutionOrder
		}
		return int(a.ID - b.ID)
	})

	exec.publish(progress.Event{
		Type:       progress.TypeStart,
		Message:    fmt.Sprintf("Executing %d sorting rules", len(enabled)),
		TotalRules: len(enabled),
	})

	for i := range enabled {
		rule := &enabled[i]
		exec.publish(progress.Event{
			Type:       progress.TypeRuleStart,
			RuleIndex:  i + 1,
			TotalRules: len(enabled),
			RuleName:   rule.Name,
			Message:    fmt.Sprintf("Rule %d/%d: %q", i+1, len(enabled), rule.Name),
		})

		rs := o.sortChannels(ctx, exec, rule, nil)
		summary.RulesRun++
		for _, e := range rs.Errors {
			summary.Errors = append(summary.Errors, fmt.Sprintf("rule %q: %s", rule.Name, e))
		}

		exec.publish(progress.Event{
			Type:       progress.TypeRuleComplete,
			RuleIndex:  i + 1,
			TotalRules: len(enabled),
			RuleName:   rule.Name,
			Message:    rs.Message,
		})
		exec.publish(progress.Event{
			Type:       progress.TypeRuleProgress,
			RuleIndex:  i + 1,
			TotalRules: len(enabled),
			Progress:   (i + 1) * 100 / len(enabled),
		})
	}

	summary.Success = true
	summary.Message = fmt.Sprintf("Executed %d sorting rules", summary.RulesRun)
	exec.setState(StateComplete)
	exec.publish(progress.Event{
		Type:    progress.TypeComplete,
		Message: summary.Message,
		Success: &summary.Success,
		Errors:  summary.Errors,
	})
	return summary
}

// testStreams probes the streams that need testing under the rule's
// retest policy, bounded by the orchestrator's concurrency limit.
// Successful probes update the stream in place and persist the stats;
// failures are reported per stream and never abort the run. Returns the
// number of failed probes.
func (o *Orchestrator) testStreams(ctx context.Context, streams []models.Stream, opts models.TestOptions, exec *Execution) int {
	now := o.now()
	var need []int
	for i := range streams {
		if rules.NeedsTest(&streams[i], opts, now) {
			need = append(need, i)
		}
	}
	if len(need) == 0 {
		return 0
	}

	exec.publish(progress.Event{
		Type:         progress.TypeTestStart,
		TotalStreams: len(need),
		Message:      fmt.Sprintf("Testing %d streams", len(need)),
	})

	var (
		mu     sync.Mutex
		done   int
		failed int
	)
	total := len(need)
	accProbes := make(map[int64]int)
	accFailures := make(map[int64]int)

	probe := func(i int) {
		s := &streams[i]
		stats, err := o.prober.Probe(ctx, s)

		mu.Lock()
		done++
		current := done
		accProbes[s.M3UAccountID]++
		if err != nil {
			failed++
			accFailures[s.M3UAccountID]++
		}
		mu.Unlock()

		if err != nil {
			exec.publish(progress.Event{
				Type:       progress.TypeTestFail,
				StreamID:   s.ID,
				StreamName: s.Name,
				Message:    err.Error(),
			})
		} else {
			s.Stats = stats
			if serr := o.store.UpdateStreamStats(ctx, s.ID, stats); serr != nil {
				log.Printf("engine: persist stats for stream %d: %v", s.ID, serr)
			}
			exec.publish(progress.Event{
				Type:       progress.TypeTestSuccess,
				StreamID:   s.ID,
				StreamName: s.Name,
				Statistics: stats,
			})
		}
		exec.publish(progress.Event{
			Type:    progress.TypeTestProgress,
			Current: current,
			Total:   total,
		})
	}

	pool, err := ants.NewPool(o.testConcurrency)
	if err != nil {
		for _, i := range need {
			probe(i)
		}
		o.disableDeadAccounts(ctx, exec, accProbes, accFailures)
		return failed
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for _, i := range need {
		i := i
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			probe(i)
		}); err != nil {
			wg.Done()
			probe(i)
		}
	}
	wg.Wait()
	o.disableDeadAccounts(ctx, exec, accProbes, accFailures)
	return failed
}

// disableDeadAccounts turns off accounts whose probed streams all failed
// in this run. A disabled account stops serving refreshes until re-enabled
// through the API; matching and scoring continue with the remaining
// candidates either way.
func (o *Orchestrator) disableDeadAccounts(ctx context.Context, exec *Execution, probes, failures map[int64]int) {
	ids := make([]int64, 0, len(probes))
	for id := range probes {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		n := probes[id]
		if id == 0 || n < disableAccountMinProbes || failures[id] != n {
			continue
		}
		exec.publish(progress.Event{
			Type:    progress.TypeDisabling,
			Message: fmt.Sprintf("All %d probed streams of account %d failed, disabling the account", n, id),
		})
		off := false
		if err := o.store.UpdateAccount(ctx, id, store.AccountUpdate{Enabled: &off}); err != nil {
			log.Printf("engine: disable account %d: %v", id, err)
			continue
		}
		exec.publish(progress.Event{
			Type:    progress.TypeProfileDisabled,
			Message: fmt.Sprintf("Account %d disabled", id),
		})
	}
}

package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/voyagen/streamplus/internal/models"
	"github.com/voyagen/streamplus/internal/progress"
	"github.com/voyagen/streamplus/internal/store"
)

// fakeStore implements just enough of store.Store for engine tests.
// Unused methods panic via the embedded nil interface.
type fakeStore struct {
	store.Store

	mu       sync.Mutex
	streams  []models.Stream
	channels map[int64]*models.Channel
	groups   map[int64]*models.ChannelGroup
	rules    []models.SortingRule

	orderWrites    map[int64][]int64 // channel id -> last written order
	appended       map[int64][]int64
	statsWrites    map[int64]*models.StreamStats
	accountToggles map[int64]bool // account id -> last written enabled state
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		channels:       make(map[int64]*models.Channel),
		groups:         make(map[int64]*models.ChannelGroup),
		orderWrites:    make(map[int64][]int64),
		appended:       make(map[int64][]int64),
		statsWrites:    make(map[int64]*models.StreamStats),
		accountToggles: make(map[int64]bool),
	}
}

func (f *fakeStore) ListStreams(_ context.Context, filter store.StreamFilter) ([]models.Stream, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Stream
	for _, s := range f.streams {
		if filter.AccountID != nil && s.M3UAccountID != *filter.AccountID {
			continue
		}
		out = append(out, s)
	}
	return out, len(out), nil
}

func (f *fakeStore) GetChannelByID(_ context.Context, id int64) (*models.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.channels[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *ch
	return &cp, nil
}

func (f *fakeStore) ListChannels(_ context.Context) ([]models.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Channel
	for _, ch := range f.channels {
		out = append(out, *ch)
	}
	return out, nil
}

func (f *fakeStore) GetChannelGroupByID(_ context.Context, id int64) (*models.ChannelGroup, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.groups[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *g
	return &cp, nil
}

func (f *fakeStore) GetChannelStreams(_ context.Context, channelID int64) ([]models.Stream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.channels[channelID]
	if !ok {
		return nil, store.ErrNotFound
	}
	var out []models.Stream
	for _, id := range ch.StreamIDs {
		for _, s := range f.streams {
			if s.ID == id {
				out = append(out, s)
			}
		}
	}
	return out, nil
}

func (f *fakeStore) SetChannelStreamOrder(_ context.Context, channelID int64, streamIDs []int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.channels[channelID]
	if !ok {
		return store.ErrNotFound
	}
	ch.StreamIDs = append([]int64(nil), streamIDs...)
	f.orderWrites[channelID] = ch.StreamIDs
	return nil
}

func (f *fakeStore) AddStreamToChannel(_ context.Context, channelID, streamID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.channels[channelID]
	if !ok {
		return store.ErrNotFound
	}
	ch.StreamIDs = append(ch.StreamIDs, streamID)
	f.appended[channelID] = append(f.appended[channelID], streamID)
	return nil
}

func (f *fakeStore) UpdateStreamStats(_ context.Context, streamID int64, stats *models.StreamStats) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statsWrites[streamID] = stats
	for i := range f.streams {
		if f.streams[i].ID == streamID {
			f.streams[i].Stats = stats
		}
	}
	return nil
}

func (f *fakeStore) UpdateAccount(_ context.Context, accountID int64, fields store.AccountUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if fields.Enabled != nil {
		f.accountToggles[accountID] = *fields.Enabled
	}
	return nil
}

func (f *fakeStore) ListSortingRules(_ context.Context) ([]models.SortingRule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.SortingRule(nil), f.rules...), nil
}

// fakeProber returns canned stats per stream id, or an error.
type fakeProber struct {
	mu    sync.Mutex
	stats map[int64]*models.StreamStats
	fail  map[int64]bool
	calls []int64
}

func (p *fakeProber) Probe(_ context.Context, s *models.Stream) (*models.StreamStats, error) {
	p.mu.Lock()
	p.calls = append(p.calls, s.ID)
	p.mu.Unlock()
	if p.fail[s.ID] {
		return nil, errors.New("connection refused")
	}
	if st, ok := p.stats[s.ID]; ok {
		return st, nil
	}
	return &models.StreamStats{VideoCodec: "h264", Resolution: "1920x1080"}, nil
}

func (p *fakeProber) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

func newTestOrchestrator(fs *fakeStore, fp *fakeProber) *Orchestrator {
	return New(fs, fp, progress.NewHub(), nil, 2)
}

func hdStats() *models.StreamStats {
	return &models.StreamStats{Resolution: "1920x1080", VideoCodec: "h264", OutputBitrate: 6000}
}

func sdStats() *models.StreamStats {
	return &models.StreamStats{Resolution: "720x576", VideoCodec: "mpeg2", OutputBitrate: 1500}
}

func TestRunAutoAssignReplace(t *testing.T) {
	fs := newFakeStore()
	fs.channels[10] = &models.Channel{ID: 10, Name: "ESPN", StreamIDs: []int64{99}}
	fs.streams = []models.Stream{
		{ID: 1, Name: "ESPN HD", M3UAccountID: 1, Stats: hdStats()},
		{ID: 2, Name: "ESPN SD", M3UAccountID: 1, Stats: sdStats()},
		{ID: 3, Name: "ESPN Backup", M3UAccountID: 2, Stats: hdStats()},
		{ID: 4, Name: "CNN", M3UAccountID: 1, Stats: hdStats()},
		{ID: 5, Name: "Discovery", M3UAccountID: 1, Stats: hdStats()},
	}
	rule := &models.AutoAssignRule{
		ID: 1, Name: "espn", ChannelID: 10, Enabled: true,
		RegexPattern:           "espn",
		ReplaceExistingStreams: true,
		ForceExcludeStreamIDs:  []int64{2},
		ForceIncludeStreamIDs:  []int64{5},
	}

	o := newTestOrchestrator(fs, &fakeProber{})
	summary := o.RunAutoAssign(context.Background(), rule)

	if !summary.Success {
		t.Fatalf("execution failed: %s", summary.Message)
	}
	// Regex matches 1, 2, 3; exclude 2, include 5.
	if summary.MatchesFound != 3 {
		t.Fatalf("matches_found = %d, want 3", summary.MatchesFound)
	}
	want := []int64{1, 3, 5}
	got := fs.orderWrites[10]
	if len(got) != len(want) {
		t.Fatalf("channel order = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("channel order = %v, want %v", got, want)
		}
	}
	if summary.StreamsAdded != 3 {
		t.Fatalf("streams_added = %d, want 3", summary.StreamsAdded)
	}
}

func TestRunAutoAssignAppendSkipsExisting(t *testing.T) {
	fs := newFakeStore()
	fs.channels[10] = &models.Channel{ID: 10, Name: "ESPN", StreamIDs: []int64{1}}
	fs.streams = []models.Stream{
		{ID: 1, Name: "ESPN HD", M3UAccountID: 1, Stats: hdStats()},
		{ID: 2, Name: "ESPN SD", M3UAccountID: 1, Stats: sdStats()},
	}
	rule := &models.AutoAssignRule{
		ID: 1, Name: "espn", ChannelID: 10, Enabled: true,
		RegexPattern: "espn",
	}

	o := newTestOrchestrator(fs, &fakeProber{})
	summary := o.RunAutoAssign(context.Background(), rule)

	if !summary.Success {
		t.Fatalf("execution failed: %s", summary.Message)
	}
	if summary.StreamsAdded != 1 {
		t.Fatalf("streams_added = %d, want 1 (stream 1 already assigned)", summary.StreamsAdded)
	}
	if got := fs.appended[10]; len(got) != 1 || got[0] != 2 {
		t.Fatalf("appended = %v, want [2]", got)
	}
}

func TestRunAutoAssignTestsOnlyUntested(t *testing.T) {
	fs := newFakeStore()
	fs.channels[10] = &models.Channel{ID: 10, Name: "ESPN"}
	fs.streams = []models.Stream{
		{ID: 1, Name: "ESPN HD", M3UAccountID: 1, Stats: hdStats()},
		{ID: 2, Name: "ESPN New", M3UAccountID: 1, Stats: nil},
	}
	rule := &models.AutoAssignRule{
		ID: 1, Name: "espn", ChannelID: 10, Enabled: true,
		RegexPattern:             "espn",
		TestStreamsBeforeSorting: true,
	}

	fp := &fakeProber{stats: map[int64]*models.StreamStats{2: hdStats()}}
	o := newTestOrchestrator(fs, fp)
	summary := o.RunAutoAssign(context.Background(), rule)

	if !summary.Success {
		t.Fatalf("execution failed: %s", summary.Message)
	}
	if fp.callCount() != 1 {
		t.Fatalf("probed %d streams, want 1 (only the untested one)", fp.callCount())
	}
	if fs.statsWrites[2] == nil {
		t.Fatal("probed stats not persisted")
	}
	// The freshly probed stream now counts as fully matching.
	if summary.MatchesFound != 2 {
		t.Fatalf("matches_found = %d, want 2", summary.MatchesFound)
	}
}

func TestRunAutoAssignProbeFailureNonFatal(t *testing.T) {
	fs := newFakeStore()
	fs.channels[10] = &models.Channel{ID: 10, Name: "ESPN"}
	fs.streams = []models.Stream{
		{ID: 1, Name: "ESPN HD", M3UAccountID: 1, Stats: hdStats()},
		{ID: 2, Name: "ESPN Dead", M3UAccountID: 1, Stats: nil},
	}
	rule := &models.AutoAssignRule{
		ID: 1, Name: "espn", ChannelID: 10, Enabled: true,
		RegexPattern:             "espn",
		TestStreamsBeforeSorting: true,
	}

	fp := &fakeProber{fail: map[int64]bool{2: true}}
	o := newTestOrchestrator(fs, fp)
	summary := o.RunAutoAssign(context.Background(), rule)

	if !summary.Success {
		t.Fatalf("probe failure aborted the execution: %s", summary.Message)
	}
	if summary.FailedTests != 1 {
		t.Fatalf("failed_tests = %d, want 1", summary.FailedTests)
	}
}

func TestRunAutoAssignMissingChannel(t *testing.T) {
	fs := newFakeStore()
	rule := &models.AutoAssignRule{ID: 1, Name: "espn", ChannelID: 404, Enabled: true}

	o := newTestOrchestrator(fs, &fakeProber{})
	summary := o.RunAutoAssign(context.Background(), rule)
	if summary.Success {
		t.Fatal("expected failure for missing target channel")
	}
}

func TestPreviewAutoAssignIsReadOnly(t *testing.T) {
	fs := newFakeStore()
	fs.channels[10] = &models.Channel{ID: 10, Name: "ESPN"}
	fs.streams = []models.Stream{
		{ID: 1, Name: "ESPN HD", M3UAccountID: 1, Stats: hdStats()},
		{ID: 2, Name: "ESPN New", M3UAccountID: 1, Stats: nil},
	}
	rule := &models.AutoAssignRule{
		ID: 1, Name: "espn", ChannelID: 10,
		RegexPattern:             "espn",
		TestStreamsBeforeSorting: true, // ignored by preview
	}

	fp := &fakeProber{}
	o := newTestOrchestrator(fs, fp)

	first, err := o.PreviewAutoAssign(context.Background(), rule)
	if err != nil {
		t.Fatal(err)
	}
	second, err := o.PreviewAutoAssign(context.Background(), rule)
	if err != nil {
		t.Fatal(err)
	}

	if fp.callCount() != 0 {
		t.Fatal("preview probed streams")
	}
	if len(fs.orderWrites) != 0 || len(fs.appended) != 0 || len(fs.statsWrites) != 0 {
		t.Fatal("preview wrote to the store")
	}
	if first.MatchesFound != second.MatchesFound || first.TotalCandidates != second.TotalCandidates {
		t.Fatal("preview is not idempotent")
	}
}

func TestRunSortingRanksStreams(t *testing.T) {
	fs := newFakeStore()
	fs.streams = []models.Stream{
		{ID: 1, Name: "A", Stats: &models.StreamStats{Resolution: "1920x1080", VideoCodec: "h264", OutputBitrate: 2000}},
		{ID: 2, Name: "B", Stats: &models.StreamStats{Resolution: "1280x720", VideoCodec: "h264", OutputBitrate: 1000}},
		{ID: 3, Name: "C", Stats: nil},
	}
	fs.channels[7] = &models.Channel{ID: 7, Name: "Sports", StreamIDs: []int64{3, 2, 1}}

	rule := &models.SortingRule{
		ID: 1, Name: "quality", Enabled: true,
		ChannelIDs: []int64{7},
		Conditions: []models.Condition{
			{Type: models.ConditionVideoResolution, Operator: models.OpGE, Value: "1080p", Points: 5},
			{Type: models.ConditionVideoCodec, Operator: models.OpEQ, Value: "h264", Points: 3},
		},
	}

	o := newTestOrchestrator(fs, &fakeProber{})
	summary := o.RunSorting(context.Background(), rule, nil)

	if !summary.Success {
		t.Fatalf("execution failed: %s", summary.Message)
	}
	// A scores 8, B scores 3, C has no stats and scores 0.
	want := []int64{1, 2, 3}
	got := fs.orderWrites[7]
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sorted order = %v, want %v", got, want)
		}
	}
	if len(summary.ProcessedChannels) != 1 || summary.ProcessedChannels[0].SortedCount != 3 {
		t.Fatalf("processed_channels = %+v", summary.ProcessedChannels)
	}
}

func TestRunSortingScopeUnion(t *testing.T) {
	fs := newFakeStore()
	fs.streams = []models.Stream{{ID: 1, Name: "A", Stats: hdStats()}}
	fs.channels[1] = &models.Channel{ID: 1, Name: "one", StreamIDs: []int64{1}}
	fs.channels[2] = &models.Channel{ID: 2, Name: "two", StreamIDs: []int64{1}}
	fs.channels[3] = &models.Channel{ID: 3, Name: "three", StreamIDs: []int64{1}}
	fs.groups[5] = &models.ChannelGroup{ID: 5, Name: "g", ChannelIDs: []int64{2, 3}}

	rule := &models.SortingRule{
		ID: 1, Name: "r", Enabled: true,
		ChannelIDs:      []int64{1, 2}, // overlaps the group
		ChannelGroupIDs: []int64{5},
		Conditions: []models.Condition{
			{Type: models.ConditionVideoCodec, Operator: models.OpEQ, Value: "h264", Points: 1},
		},
	}

	o := newTestOrchestrator(fs, &fakeProber{})
	summary := o.RunSorting(context.Background(), rule, nil)

	if !summary.Success {
		t.Fatalf("execution failed: %s", summary.Message)
	}
	if len(summary.ProcessedChannels) != 3 {
		t.Fatalf("processed %d channels, want 3 (deduplicated union)", len(summary.ProcessedChannels))
	}
	// Ascending channel id.
	for i, want := range []int64{1, 2, 3} {
		if summary.ProcessedChannels[i].ChannelID != want {
			t.Fatalf("channel order = %+v", summary.ProcessedChannels)
		}
	}
}

func TestRunSortingMissingGroupSkipped(t *testing.T) {
	fs := newFakeStore()
	fs.streams = []models.Stream{{ID: 1, Name: "A", Stats: hdStats()}}
	fs.channels[1] = &models.Channel{ID: 1, Name: "one", StreamIDs: []int64{1}}

	rule := &models.SortingRule{
		ID: 1, Name: "r", Enabled: true,
		ChannelIDs:      []int64{1},
		ChannelGroupIDs: []int64{404},
		Conditions: []models.Condition{
			{Type: models.ConditionVideoCodec, Operator: models.OpEQ, Value: "h264", Points: 1},
		},
	}

	o := newTestOrchestrator(fs, &fakeProber{})
	summary := o.RunSorting(context.Background(), rule, nil)

	if !summary.Success {
		t.Fatal("missing group should not fail the execution")
	}
	if len(summary.ProcessedChannels) != 1 {
		t.Fatalf("processed %d channels, want 1", len(summary.ProcessedChannels))
	}
	if len(summary.Errors) != 1 {
		t.Fatalf("errors = %v, want one scope error", summary.Errors)
	}
}

func TestRunSortingEmptyChannelSkipped(t *testing.T) {
	fs := newFakeStore()
	fs.channels[1] = &models.Channel{ID: 1, Name: "empty"}

	rule := &models.SortingRule{
		ID: 1, Name: "r", Enabled: true, ChannelIDs: []int64{1},
		Conditions: []models.Condition{
			{Type: models.ConditionVideoCodec, Operator: models.OpEQ, Value: "h264", Points: 1},
		},
	}

	o := newTestOrchestrator(fs, &fakeProber{})
	summary := o.RunSorting(context.Background(), rule, nil)

	if !summary.Success {
		t.Fatalf("execution failed: %s", summary.Message)
	}
	if !summary.ProcessedChannels[0].Skipped {
		t.Fatal("empty channel should be reported as skipped")
	}
	if len(fs.orderWrites) != 0 {
		t.Fatal("no order should be written for an empty channel")
	}
}

func TestRunAllRulesSkipsDisabled(t *testing.T) {
	fs := newFakeStore()
	fs.streams = []models.Stream{{ID: 1, Name: "A", Stats: hdStats()}}
	fs.channels[1] = &models.Channel{ID: 1, Name: "one", StreamIDs: []int64{1}}
	cond := []models.Condition{
		{Type: models.ConditionVideoCodec, Operator: models.OpEQ, Value: "h264", Points: 1},
	}
	fs.rules = []models.SortingRule{
		{ID: 1, Name: "first", Enabled: true, ExecutionOrder: 1, ChannelIDs: []int64{1}, Conditions: cond},
		{ID: 2, Name: "disabled", Enabled: false, ExecutionOrder: 2, ChannelIDs: []int64{1}, Conditions: cond},
		{ID: 3, Name: "last", Enabled: true, ExecutionOrder: 999, ChannelIDs: []int64{1}, Conditions: cond},
	}

	o := newTestOrchestrator(fs, &fakeProber{})
	summary := o.RunAllRules(context.Background())

	if !summary.Success {
		t.Fatalf("execution failed: %s", summary.Message)
	}
	if summary.RulesRun != 2 {
		t.Fatalf("rules_run = %d, want 2", summary.RulesRun)
	}
}

func TestRunAllRulesHonorsExecutionOrder(t *testing.T) {
	fs := newFakeStore()
	fs.streams = []models.Stream{{ID: 1, Name: "A", Stats: hdStats()}}
	fs.channels[1] = &models.Channel{ID: 1, Name: "one", StreamIDs: []int64{1}}
	cond := []models.Condition{
		{Type: models.ConditionVideoCodec, Operator: models.OpEQ, Value: "h264", Points: 1},
	}
	// Deliberately out of store order: the default order 999 first, then a
	// tied pair in reverse id order.
	fs.rules = []models.SortingRule{
		{ID: 2, Name: "default-last", Enabled: true, ExecutionOrder: 999, ChannelIDs: []int64{1}, Conditions: cond},
		{ID: 3, Name: "tied-second", Enabled: true, ExecutionOrder: 5, ChannelIDs: []int64{1}, Conditions: cond},
		{ID: 1, Name: "tied-first", Enabled: true, ExecutionOrder: 5, ChannelIDs: []int64{1}, Conditions: cond},
	}

	hub := progress.NewHub()
	o := New(fs, &fakeProber{}, hub, nil, 2)

	exec := o.StartAllRules()
	ch, cancel, err := hub.Subscribe(exec.ID)
	if err != nil {
		t.Fatal(err)
	}
	defer cancel()

	var ran []string
	for ev := range ch {
		if ev.Type == progress.TypeRuleStart {
			ran = append(ran, ev.RuleName)
		}
	}

	want := []string{"tied-first", "tied-second", "default-last"}
	if len(ran) != len(want) {
		t.Fatalf("rules ran = %v, want %v", ran, want)
	}
	for i := range want {
		if ran[i] != want[i] {
			t.Fatalf("rules ran = %v, want %v", ran, want)
		}
	}
}

func TestDeadAccountDisabled(t *testing.T) {
	fs := newFakeStore()
	fs.channels[10] = &models.Channel{ID: 10, Name: "ESPN"}
	fs.streams = []models.Stream{
		{ID: 1, Name: "ESPN 1", M3UAccountID: 7},
		{ID: 2, Name: "ESPN 2", M3UAccountID: 7},
		{ID: 3, Name: "ESPN 3", M3UAccountID: 7},
		{ID: 4, Name: "ESPN 4", M3UAccountID: 8},
	}
	rule := &models.AutoAssignRule{
		ID: 1, Name: "espn", ChannelID: 10, Enabled: true,
		RegexPattern:             "espn",
		TestStreamsBeforeSorting: true,
	}

	// Every stream of account 7 refuses; account 8 probes fine.
	fp := &fakeProber{fail: map[int64]bool{1: true, 2: true, 3: true}}
	hub := progress.NewHub()
	o := New(fs, fp, hub, nil, 2)

	exec := o.StartAutoAssign(rule)
	ch, cancel, err := hub.Subscribe(exec.ID)
	if err != nil {
		t.Fatal(err)
	}
	defer cancel()

	var sawDisabling, sawDisabled bool
	for ev := range ch {
		switch ev.Type {
		case progress.TypeDisabling:
			sawDisabling = true
		case progress.TypeProfileDisabled:
			sawDisabled = true
		}
	}
	if !sawDisabling || !sawDisabled {
		t.Fatalf("disabling events = (%v, %v), want both", sawDisabling, sawDisabled)
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()
	enabled, toggled := fs.accountToggles[7]
	if !toggled || enabled {
		t.Fatalf("account 7 toggle = (%v, %v), want disabled", enabled, toggled)
	}
	if _, toggled := fs.accountToggles[8]; toggled {
		t.Fatal("healthy account 8 was toggled")
	}
}

func TestFewProbeFailuresDoNotDisableAccount(t *testing.T) {
	fs := newFakeStore()
	fs.channels[10] = &models.Channel{ID: 10, Name: "ESPN"}
	fs.streams = []models.Stream{
		{ID: 1, Name: "ESPN 1", M3UAccountID: 7},
		{ID: 2, Name: "ESPN 2", M3UAccountID: 7},
	}
	rule := &models.AutoAssignRule{
		ID: 1, Name: "espn", ChannelID: 10, Enabled: true,
		RegexPattern:             "espn",
		TestStreamsBeforeSorting: true,
	}

	fp := &fakeProber{fail: map[int64]bool{1: true, 2: true}}
	o := newTestOrchestrator(fs, fp)
	summary := o.RunAutoAssign(context.Background(), rule)

	if !summary.Success {
		t.Fatalf("execution failed: %s", summary.Message)
	}
	if len(fs.accountToggles) != 0 {
		t.Fatalf("account toggles = %v, want none below the probe threshold", fs.accountToggles)
	}
}

func TestStartAutoAssignStreamsEvents(t *testing.T) {
	fs := newFakeStore()
	fs.channels[10] = &models.Channel{ID: 10, Name: "ESPN"}
	fs.streams = []models.Stream{{ID: 1, Name: "ESPN HD", M3UAccountID: 1, Stats: hdStats()}}
	rule := &models.AutoAssignRule{
		ID: 1, Name: "espn", ChannelID: 10, Enabled: true, RegexPattern: "espn",
	}

	hub := progress.NewHub()
	o := New(fs, &fakeProber{}, hub, nil, 2)

	exec := o.StartAutoAssign(rule)
	ch, cancel, err := hub.Subscribe(exec.ID)
	if err != nil {
		t.Fatal(err)
	}
	defer cancel()

	var last progress.Event
	var sawDebug bool
	for ev := range ch {
		if ev.Type == progress.TypeDebug {
			sawDebug = true
		}
		last = ev
	}
	if last.Type != progress.TypeComplete {
		t.Fatalf("last event = %q, want complete", last.Type)
	}
	if !sawDebug {
		t.Fatal("no classification breakdown event")
	}
	if last.Success == nil || !*last.Success {
		t.Fatalf("terminal event success = %v", last.Success)
	}
	if last.MatchesFound == nil || *last.MatchesFound != 1 {
		t.Fatalf("terminal matches_found = %v", last.MatchesFound)
	}
}

func TestLocalLockerSerializes(t *testing.T) {
	l := NewLocalLocker()
	unlock, err := l.Lock(context.Background(), "k")
	if err != nil {
		t.Fatal(err)
	}

	acquired := make(chan struct{})
	go func() {
		u2, err := l.Lock(context.Background(), "k")
		if err != nil {
			panic(fmt.Sprintf("second lock: %v", err))
		}
		close(acquired)
		u2()
	}()

	select {
	case <-acquired:
		t.Fatal("second locker acquired while first held")
	default:
	}

	unlock()
	<-acquired
}

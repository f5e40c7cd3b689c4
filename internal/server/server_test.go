package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/voyagen/streamplus/internal/config"
	"github.com/voyagen/streamplus/internal/engine"
	"github.com/voyagen/streamplus/internal/models"
	"github.com/voyagen/streamplus/internal/progress"
	"github.com/voyagen/streamplus/internal/store"
)

// stubStore implements just enough of store.Store for handler tests.
// Unused methods panic via the embedded nil interface.
type stubStore struct {
	store.Store

	mu              sync.Mutex
	autoAssignRules map[int64]*models.AutoAssignRule
	sortingRules    map[int64]*models.SortingRule
	channels        map[int64]*models.Channel
	streams         []models.Stream

	orderWrites map[int64][]int64
}

func newStubStore() *stubStore {
	return &stubStore{
		autoAssignRules: make(map[int64]*models.AutoAssignRule),
		sortingRules:    make(map[int64]*models.SortingRule),
		channels:        make(map[int64]*models.Channel),
		orderWrites:     make(map[int64][]int64),
	}
}

func (st *stubStore) GetAutoAssignRuleByID(_ context.Context, id int64) (*models.AutoAssignRule, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	r, ok := st.autoAssignRules[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (st *stubStore) GetSortingRuleByID(_ context.Context, id int64) (*models.SortingRule, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	r, ok := st.sortingRules[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (st *stubStore) ListSortingRules(_ context.Context) ([]models.SortingRule, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	var out []models.SortingRule
	for _, r := range st.sortingRules {
		out = append(out, *r)
	}
	return out, nil
}

func (st *stubStore) GetChannelByID(_ context.Context, id int64) (*models.Channel, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	ch, ok := st.channels[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *ch
	return &cp, nil
}

func (st *stubStore) ListStreams(_ context.Context, _ store.StreamFilter) ([]models.Stream, int, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	out := append([]models.Stream(nil), st.streams...)
	return out, len(out), nil
}

func (st *stubStore) GetChannelStreams(_ context.Context, channelID int64) ([]models.Stream, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	ch, ok := st.channels[channelID]
	if !ok {
		return nil, store.ErrNotFound
	}
	var out []models.Stream
	for _, id := range ch.StreamIDs {
		for _, s := range st.streams {
			if s.ID == id {
				out = append(out, s)
			}
		}
	}
	return out, nil
}

func (st *stubStore) SetChannelStreamOrder(_ context.Context, channelID int64, streamIDs []int64) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	ch, ok := st.channels[channelID]
	if !ok {
		return store.ErrNotFound
	}
	ch.StreamIDs = append([]int64(nil), streamIDs...)
	st.orderWrites[channelID] = ch.StreamIDs
	return nil
}

func (st *stubStore) AddStreamToChannel(_ context.Context, channelID, streamID int64) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	ch, ok := st.channels[channelID]
	if !ok {
		return store.ErrNotFound
	}
	ch.StreamIDs = append(ch.StreamIDs, streamID)
	return nil
}

type stubProber struct{}

func (stubProber) Probe(_ context.Context, _ *models.Stream) (*models.StreamStats, error) {
	return &models.StreamStats{VideoCodec: "h264", Resolution: "1920x1080"}, nil
}

func newTestServer(st *stubStore) *Server {
	hub := progress.NewHub()
	eng := engine.New(st, stubProber{}, hub, nil, 2)
	return New(st, &config.Config{ServerPort: "0"}, eng, hub, stubProber{}, nil)
}

func seedAutoAssign(st *stubStore) {
	st.channels[10] = &models.Channel{ID: 10, Name: "ESPN"}
	st.streams = []models.Stream{
		{ID: 1, Name: "ESPN HD", M3UAccountID: 1, Stats: &models.StreamStats{Resolution: "1920x1080", VideoCodec: "h264"}},
		{ID: 2, Name: "CNN", M3UAccountID: 1, Stats: &models.StreamStats{Resolution: "1920x1080", VideoCodec: "h264"}},
	}
	st.autoAssignRules[1] = &models.AutoAssignRule{
		ID: 1, Name: "espn", ChannelID: 10, Enabled: true, RegexPattern: "espn",
	}
}

func TestExecuteAutoAssignNonStreamingReturnsSummary(t *testing.T) {
	st := newStubStore()
	seedAutoAssign(st)
	srv := newTestServer(st)

	req := httptest.NewRequest(http.MethodPost, "/api/auto-assign-rules/1/execute",
		strings.NewReader(`{"stream": false}`))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body)
	}
	var summary engine.AutoAssignSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if !summary.Success {
		t.Fatalf("summary = %+v, want success", summary)
	}
	if summary.MatchesFound != 1 {
		t.Fatalf("matches_found = %d, want 1", summary.MatchesFound)
	}
	if got := st.orderWrites[10]; len(got) != 1 || got[0] != 1 {
		t.Fatalf("channel order = %v, want [1]", got)
	}
}

func TestExecuteAutoAssignDefaultsToStreaming(t *testing.T) {
	st := newStubStore()
	seedAutoAssign(st)
	srv := newTestServer(st)

	req := httptest.NewRequest(http.MethodPost, "/api/auto-assign-rules/1/execute", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202; body %s", rec.Code, rec.Body)
	}
	var resp struct {
		Stream      bool   `json:"stream"`
		ExecutionID string `json:"execution_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Stream || resp.ExecutionID == "" {
		t.Fatalf("response = %+v, want stream handle", resp)
	}
}

func TestExecuteAutoAssignBadBody(t *testing.T) {
	st := newStubStore()
	seedAutoAssign(st)
	srv := newTestServer(st)

	req := httptest.NewRequest(http.MethodPost, "/api/auto-assign-rules/1/execute",
		strings.NewReader(`{"stream":`))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestExecuteSortingNonStreamingWithBodyChannel(t *testing.T) {
	st := newStubStore()
	st.streams = []models.Stream{
		{ID: 1, Name: "A", Stats: &models.StreamStats{Resolution: "1920x1080", VideoCodec: "h264"}},
		{ID: 2, Name: "B", Stats: &models.StreamStats{Resolution: "1280x720", VideoCodec: "h264"}},
	}
	st.channels[7] = &models.Channel{ID: 7, Name: "Sports", StreamIDs: []int64{2, 1}}
	st.channels[8] = &models.Channel{ID: 8, Name: "News", StreamIDs: []int64{1}}
	st.sortingRules[1] = &models.SortingRule{
		ID: 1, Name: "quality", Enabled: true,
		ChannelIDs: []int64{7, 8},
		Conditions: []models.Condition{
			{Type: models.ConditionVideoResolution, Operator: models.OpGE, Value: "1080p", Points: 5},
		},
	}
	srv := newTestServer(st)

	req := httptest.NewRequest(http.MethodPost, "/api/sorting-rules/1/execute",
		strings.NewReader(`{"stream": false, "channel_id": 7}`))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body)
	}
	var summary engine.SortingSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if !summary.Success {
		t.Fatalf("summary = %+v, want success", summary)
	}
	// The body's channel_id narrows the run to channel 7.
	if len(summary.ProcessedChannels) != 1 || summary.ProcessedChannels[0].ChannelID != 7 {
		t.Fatalf("processed_channels = %+v, want only channel 7", summary.ProcessedChannels)
	}
	if got := st.orderWrites[7]; len(got) != 2 || got[0] != 1 {
		t.Fatalf("channel order = %v, want [1 2]", got)
	}
}

func TestExecuteAllSortingRulesNonStreaming(t *testing.T) {
	st := newStubStore()
	st.streams = []models.Stream{
		{ID: 1, Name: "A", Stats: &models.StreamStats{Resolution: "1920x1080", VideoCodec: "h264"}},
	}
	st.channels[1] = &models.Channel{ID: 1, Name: "one", StreamIDs: []int64{1}}
	st.sortingRules[1] = &models.SortingRule{
		ID: 1, Name: "r", Enabled: true, ChannelIDs: []int64{1},
		Conditions: []models.Condition{
			{Type: models.ConditionVideoCodec, Operator: models.OpEQ, Value: "h264", Points: 1},
		},
	}
	srv := newTestServer(st)

	req := httptest.NewRequest(http.MethodPost, "/api/sorting-rules/execute-all",
		strings.NewReader(`{"stream": false}`))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body)
	}
	var summary engine.AllRulesSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if !summary.Success || summary.RulesRun != 1 {
		t.Fatalf("summary = %+v, want 1 rule run", summary)
	}
}

func TestExecuteDisabledRuleConflicts(t *testing.T) {
	st := newStubStore()
	st.channels[10] = &models.Channel{ID: 10, Name: "ESPN"}
	st.autoAssignRules[1] = &models.AutoAssignRule{
		ID: 1, Name: "espn", ChannelID: 10, Enabled: false, RegexPattern: "espn",
	}
	srv := newTestServer(st)

	req := httptest.NewRequest(http.MethodPost, "/api/auto-assign-rules/1/execute",
		strings.NewReader(`{"stream": false}`))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/voyagen/streamplus/api"
	"github.com/voyagen/streamplus/internal/cache"
	"github.com/voyagen/streamplus/internal/config"
	"github.com/voyagen/streamplus/internal/engine"
	"github.com/voyagen/streamplus/internal/models"
	"github.com/voyagen/streamplus/internal/prober"
	"github.com/voyagen/streamplus/internal/progress"
	"github.com/voyagen/streamplus/internal/rules"
	"github.com/voyagen/streamplus/internal/service"
	"github.com/voyagen/streamplus/internal/store"
)

// Server holds dependencies for the HTTP API.
type Server struct {
	store  store.Store
	cfg    *config.Config
	engine *engine.Orchestrator
	hub    *progress.Hub
	prober prober.Prober
	redis  *cache.Redis // nil when REDIS_URL is not set
	mux    *http.ServeMux
}

// New creates a Server and registers routes.
// redis may be nil if background probe jobs are not configured.
func New(s store.Store, cfg *config.Config, eng *engine.Orchestrator, hub *progress.Hub, pr prober.Prober, redis *cache.Redis) *Server {
	srv := &Server{store: s, cfg: cfg, engine: eng, hub: hub, prober: pr, redis: redis, mux: http.NewServeMux()}
	srv.routes()
	return srv
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	// M3U accounts
	s.mux.HandleFunc("GET /api/m3u-accounts", s.handleListAccounts)
	s.mux.HandleFunc("POST /api/m3u-accounts", s.handleAddAccount)
	s.mux.HandleFunc("GET /api/m3u-accounts/{id}", s.handleGetAccount)
	s.mux.HandleFunc("PATCH /api/m3u-accounts/{id}", s.handleUpdateAccount)
	s.mux.HandleFunc("DELETE /api/m3u-accounts/{id}", s.handleDeleteAccount)
	s.mux.HandleFunc("POST /api/m3u-accounts/{id}/refresh", s.handleRefreshAccount)
	s.mux.HandleFunc("POST /api/m3u-accounts/{id}/probe", s.handleProbeAccount)

	// Streams
	s.mux.HandleFunc("GET /api/streams", s.handleListStreams)
	s.mux.HandleFunc("GET /api/streams/{id}", s.handleGetStream)
	s.mux.HandleFunc("POST /api/streams/{id}/test", s.handleTestStream)
	s.mux.HandleFunc("DELETE /api/streams/{id}/stats", s.handleClearStreamStats)

	// Channels
	s.mux.HandleFunc("GET /api/channels", s.handleListChannels)
	s.mux.HandleFunc("POST /api/channels", s.handleCreateChannel)
	s.mux.HandleFunc("GET /api/channels/{id}", s.handleGetChannel)
	s.mux.HandleFunc("PATCH /api/channels/{id}", s.handleUpdateChannel)
	s.mux.HandleFunc("GET /api/channels/{id}/streams", s.handleGetChannelStreams)
	s.mux.HandleFunc("PUT /api/channels/{id}/streams", s.handleSetChannelStreams)
	s.mux.HandleFunc("POST /api/channels/{id}/streams/{streamID}", s.handleAddChannelStream)
	s.mux.HandleFunc("DELETE /api/channels/{id}/streams/{streamID}", s.handleRemoveChannelStream)

	// Channel groups
	s.mux.HandleFunc("GET /api/channel-groups", s.handleListGroups)
	s.mux.HandleFunc("POST /api/channel-groups", s.handleCreateGroup)
	s.mux.HandleFunc("GET /api/channel-groups/{id}", s.handleGetGroup)
	s.mux.HandleFunc("PUT /api/channel-groups/{id}", s.handleUpdateGroup)
	s.mux.HandleFunc("DELETE /api/channel-groups/{id}", s.handleDeleteGroup)

	// Auto-assign rules
	s.mux.HandleFunc("GET /api/auto-assign-rules", s.handleListAutoAssignRules)
	s.mux.HandleFunc("POST /api/auto-assign-rules", s.handleCreateAutoAssignRule)
	s.mux.HandleFunc("POST /api/auto-assign-rules/preview", s.handlePreviewAutoAssignBody)
	s.mux.HandleFunc("GET /api/auto-assign-rules/{id}", s.handleGetAutoAssignRule)
	s.mux.HandleFunc("PUT /api/auto-assign-rules/{id}", s.handleUpdateAutoAssignRule)
	s.mux.HandleFunc("DELETE /api/auto-assign-rules/{id}", s.handleDeleteAutoAssignRule)
	s.mux.HandleFunc("PATCH /api/auto-assign-rules/{id}/toggle", s.handleToggleAutoAssignRule)
	s.mux.HandleFunc("POST /api/auto-assign-rules/{id}/preview", s.handlePreviewAutoAssignRule)
	s.mux.HandleFunc("POST /api/auto-assign-rules/{id}/execute", s.handleExecuteAutoAssignRule)
	s.mux.HandleFunc("GET /api/auto-assign-rules/{id}/progress/{executionID}", s.handleProgress)

	// Sorting rules
	s.mux.HandleFunc("GET /api/sorting-rules", s.handleListSortingRules)
	s.mux.HandleFunc("POST /api/sorting-rules", s.handleCreateSortingRule)
	s.mux.HandleFunc("POST /api/sorting-rules/execute-all", s.handleExecuteAllSortingRules)
	s.mux.HandleFunc("GET /api/sorting-rules/{id}", s.handleGetSortingRule)
	s.mux.HandleFunc("PUT /api/sorting-rules/{id}", s.handleUpdateSortingRule)
	s.mux.HandleFunc("DELETE /api/sorting-rules/{id}", s.handleDeleteSortingRule)
	s.mux.HandleFunc("PATCH /api/sorting-rules/{id}/toggle", s.handleToggleSortingRule)
	s.mux.HandleFunc("POST /api/sorting-rules/{id}/preview", s.handlePreviewSortingRule)
	s.mux.HandleFunc("POST /api/sorting-rules/{id}/execute", s.handleExecuteSortingRule)
	s.mux.HandleFunc("GET /api/sorting-rules/{id}/progress/{executionID}", s.handleProgress)

	// Progress reconnect path, not tied to a rule.
	s.mux.HandleFunc("GET /api/progress/{executionID}", s.handleProgress)

	// Docs
	s.mux.HandleFunc("GET /api/docs", handleSwaggerUI)
	s.mux.HandleFunc("GET /api/docs/openapi.yaml", handleOpenAPISpec)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe starts the HTTP server on the configured port.
// It blocks until the server is shut down or ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := ":" + s.cfg.ServerPort
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      withCORS(withLogging(s)),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Minute, // SSE connections stay open for whole executions
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown on context cancellation.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("server shutdown: %v", err)
		}
	}()

	log.Printf("listening on %s", addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("ListenAndServe: %w", err)
	}
	return nil
}

// --- handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- account handlers ---

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.store.ListAccounts(r.Context())
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	if accounts == nil {
		accounts = []models.M3UAccount{}
	}
	writeJSON(w, http.StatusOK, accounts)
}

type addAccountRequest struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

func (s *Server) handleAddAccount(w http.ResponseWriter, r *http.Request) {
	var req addAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}
	if req.URL == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("url is required"))
		return
	}
	if u, err := url.ParseRequestURI(req.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("url must be a valid http or https URL"))
		return
	}
	if req.Name == "" {
		req.Name = "m3u"
	}

	accountID, count, err := service.Ingest(r.Context(), s.store, req.URL, req.Name, s.cfg.UserAgent, s.cfg.Timeout, true)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, fmt.Errorf("ingest: %w", err))
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"account_id":   accountID,
		"stream_count": count,
	})
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	accountID, err := parseID(r, "id")
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}

	acc, err := s.store.GetAccountByID(r.Context(), accountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErr(w, http.StatusNotFound, fmt.Errorf("account %d not found", accountID))
			return
		}
		writeErr(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, acc)
}

type updateAccountRequest struct {
	Name      *string `json:"name"`
	URL       *string `json:"url"`
	UserAgent *string `json:"user_agent"`
	Enabled   *bool   `json:"enabled"`
}

func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	accountID, err := parseID(r, "id")
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}

	var req updateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}

	fields := store.AccountUpdate{
		Name:      req.Name,
		URL:       req.URL,
		UserAgent: req.UserAgent,
		Enabled:   req.Enabled,
	}

	if err := s.store.UpdateAccount(r.Context(), accountID, fields); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErr(w, http.StatusNotFound, fmt.Errorf("account %d not found", accountID))
			return
		}
		writeErr(w, http.StatusInternalServerError, err)
		return
	}

	// Return the updated account.
	acc, err := s.store.GetAccountByID(r.Context(), accountID)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, acc)
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	accountID, err := parseID(r, "id")
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}

	if err := s.store.DeleteAccount(r.Context(), accountID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErr(w, http.StatusNotFound, fmt.Errorf("account %d not found", accountID))
			return
		}
		writeErr(w, http.StatusInternalServerError, err)
		return
	}

	writeNoContent(w)
}

func (s *Server) handleRefreshAccount(w http.ResponseWriter, r *http.Request) {
	accountID, err := parseID(r, "id")
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}

	acc, err := s.store.GetAccountByID(r.Context(), accountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErr(w, http.StatusNotFound, fmt.Errorf("account %d not found", accountID))
			return
		}
		writeErr(w, http.StatusInternalServerError, err)
		return
	}

	if !acc.Enabled {
		writeErr(w, http.StatusConflict, fmt.Errorf("account %d is disabled", accountID))
		return
	}

	userAgent := acc.UserAgent
	if userAgent == "" {
		userAgent = s.cfg.UserAgent
	}

	_, count, err := service.Ingest(r.Context(), s.store, acc.URL, acc.Name, userAgent, s.cfg.Timeout, true)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, fmt.Errorf("refresh: %w", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"account_id":   accountID,
		"stream_count": count,
		"refreshed":    true,
	})
}

type probeAccountRequest struct {
	StreamIDs []int64 `json:"stream_ids"`
	Force     bool    `json:"force"`
}

// handleProbeAccount queues a background probe of the account's streams.
// With Redis the job goes through the shared queue so any worker can pick
// it up; without it the probe runs in-process.
func (s *Server) handleProbeAccount(w http.ResponseWriter, r *http.Request) {
	accountID, err := parseID(r, "id")
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}

	acc, err := s.store.GetAccountByID(r.Context(), accountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErr(w, http.StatusNotFound, fmt.Errorf("account %d not found", accountID))
			return
		}
		writeErr(w, http.StatusInternalServerError, err)
		return
	}

	var req probeAccountRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
			return
		}
	}

	job := cache.ProbeJob{
		AccountID:   acc.ID,
		AccountName: acc.Name,
		StreamIDs:   req.StreamIDs,
		Force:       req.Force,
	}

	if s.redis != nil {
		if err := cache.Enqueue(r.Context(), s.redis, cache.DefaultQueue, job); err != nil {
			writeErr(w, http.StatusInternalServerError, fmt.Errorf("enqueue probe job: %w", err))
			return
		}
	} else {
		go func() {
			// Detached context: probing outlives the request.
			tested, failed, err := service.RefreshStats(context.Background(), s.store, s.prober, job, s.cfg.ProbeConcurrency)
			if err != nil {
				log.Printf("probe[%s]: error: %v", job.AccountName, err)
				return
			}
			log.Printf("probe[%s]: %d tested, %d failed", job.AccountName, tested, failed)
		}()
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"account_id": accountID,
		"queued":     true,
	})
}

// --- stream handlers ---

func (s *Server) handleListStreams(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := store.StreamFilter{
		Search: q.Get("search"),
	}

	if v := q.Get("m3u_account_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid m3u_account_id: %s", v))
			return
		}
		filter.AccountID = &id
	}
	if v := q.Get("tested"); v != "" {
		switch v {
		case "true", "1":
			t := true
			filter.Tested = &t
		case "false", "0":
			t := false
			filter.Tested = &t
		default:
			writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid tested: %s (use true or false)", v))
			return
		}
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid limit: %s", v))
			return
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid offset: %s", v))
			return
		}
		filter.Offset = n
	}

	// Apply defaults so the response reflects actual values used.
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Limit > 500 {
		filter.Limit = 500
	}

	streams, total, err := s.store.ListStreams(r.Context(), filter)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	if streams == nil {
		streams = []models.Stream{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"streams": streams,
		"total":   total,
		"limit":   filter.Limit,
		"offset":  filter.Offset,
	})
}

func (s *Server) handleGetStream(w http.ResponseWriter, r *http.Request) {
	streamID, err := parseID(r, "id")
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}

	stream, err := s.store.GetStreamByID(r.Context(), streamID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErr(w, http.StatusNotFound, fmt.Errorf("stream %d not found", streamID))
			return
		}
		writeErr(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, stream)
}

// handleTestStream probes a single stream synchronously and persists the
// measured statistics.
func (s *Server) handleTestStream(w http.ResponseWriter, r *http.Request) {
	streamID, err := parseID(r, "id")
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}

	stream, err := s.store.GetStreamByID(r.Context(), streamID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErr(w, http.StatusNotFound, fmt.Errorf("stream %d not found", streamID))
			return
		}
		writeErr(w, http.StatusInternalServerError, err)
		return
	}

	stats, err := s.prober.Probe(r.Context(), stream)
	if err != nil {
		writeErr(w, http.StatusBadGateway, fmt.Errorf("probe: %w", err))
		return
	}
	if err := s.store.UpdateStreamStats(r.Context(), streamID, stats); err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"stream_id":    streamID,
		"stream_stats": stats,
	})
}

func (s *Server) handleClearStreamStats(w http.ResponseWriter, r *http.Request) {
	streamID, err := parseID(r, "id")
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}

	if err := s.store.ClearStreamStats(r.Context(), streamID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErr(w, http.StatusNotFound, fmt.Errorf("stream %d not found", streamID))
			return
		}
		writeErr(w, http.StatusInternalServerError, err)
		return
	}

	writeNoContent(w)
}

// --- channel handlers ---

func (s *Server) handleListChannels(w http.ResponseWriter, r *http.Request) {
	channels, err := s.store.ListChannels(r.Context())
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	if channels == nil {
		channels = []models.Channel{}
	}
	writeJSON(w, http.StatusOK, channels)
}

type createChannelRequest struct {
	Name   string  `json:"name"`
	Number *int    `json:"channel_number"`
	Logo   *string `json:"logo"`
}

func (s *Server) handleCreateChannel(w http.ResponseWriter, r *http.Request) {
	var req createChannelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}
	if req.Name == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("name is required"))
		return
	}

	ch := &models.Channel{Name: req.Name, Number: req.Number, Logo: req.Logo}
	id, err := s.store.CreateChannel(r.Context(), ch)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	ch.ID = id
	writeJSON(w, http.StatusCreated, ch)
}

func (s *Server) handleGetChannel(w http.ResponseWriter, r *http.Request) {
	channelID, err := parseID(r, "id")
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}

	ch, err := s.store.GetChannelByID(r.Context(), channelID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErr(w, http.StatusNotFound, fmt.Errorf("channel %d not found", channelID))
			return
		}
		writeErr(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, ch)
}

type updateChannelRequest struct {
	Name   *string `json:"name"`
	Number *int    `json:"channel_number"`
	Logo   *string `json:"logo"`
}

func (s *Server) handleUpdateChannel(w http.ResponseWriter, r *http.Request) {
	channelID, err := parseID(r, "id")
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}

	var req updateChannelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}

	fields := store.ChannelUpdate{Name: req.Name, Number: req.Number, Logo: req.Logo}
	if err := s.store.UpdateChannel(r.Context(), channelID, fields); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErr(w, http.StatusNotFound, fmt.Errorf("channel %d not found", channelID))
			return
		}
		writeErr(w, http.StatusInternalServerError, err)
		return
	}

	ch, err := s.store.GetChannelByID(r.Context(), channelID)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, ch)
}

func (s *Server) handleGetChannelStreams(w http.ResponseWriter, r *http.Request) {
	channelID, err := parseID(r, "id")
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}

	streams, err := s.store.GetChannelStreams(r.Context(), channelID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErr(w, http.StatusNotFound, fmt.Errorf("channel %d not found", channelID))
			return
		}
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	if streams == nil {
		streams = []models.Stream{}
	}
	writeJSON(w, http.StatusOK, streams)
}

type setChannelStreamsRequest struct {
	StreamIDs []int64 `json:"stream_ids"`
}

func (s *Server) handleSetChannelStreams(w http.ResponseWriter, r *http.Request) {
	channelID, err := parseID(r, "id")
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}

	var req setChannelStreamsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}

	if err := s.store.SetChannelStreamOrder(r.Context(), channelID, req.StreamIDs); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErr(w, http.StatusNotFound, fmt.Errorf("channel %d not found", channelID))
			return
		}
		writeErr(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"channel_id":   channelID,
		"stream_count": len(req.StreamIDs),
	})
}

func (s *Server) handleAddChannelStream(w http.ResponseWriter, r *http.Request) {
	channelID, err := parseID(r, "id")
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	streamID, err := parseID(r, "streamID")
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}

	if err := s.store.AddStreamToChannel(r.Context(), channelID, streamID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErr(w, http.StatusNotFound, err)
			return
		}
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"channel_id": channelID, "stream_id": streamID})
}

func (s *Server) handleRemoveChannelStream(w http.ResponseWriter, r *http.Request) {
	channelID, err := parseID(r, "id")
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	streamID, err := parseID(r, "streamID")
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}

	if err := s.store.RemoveStreamFromChannel(r.Context(), channelID, streamID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErr(w, http.StatusNotFound, err)
			return
		}
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeNoContent(w)
}

// --- channel group handlers ---

func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := s.store.ListChannelGroups(r.Context())
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	if groups == nil {
		groups = []models.ChannelGroup{}
	}
	writeJSON(w, http.StatusOK, groups)
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var g models.ChannelGroup
	if err := json.NewDecoder(r.Body).Decode(&g); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}
	if g.Name == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("name is required"))
		return
	}

	id, err := s.store.CreateChannelGroup(r.Context(), &g)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	g.ID = id
	writeJSON(w, http.StatusCreated, g)
}

func (s *Server) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	groupID, err := parseID(r, "id")
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}

	g, err := s.store.GetChannelGroupByID(r.Context(), groupID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErr(w, http.StatusNotFound, fmt.Errorf("channel group %d not found", groupID))
			return
		}
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleUpdateGroup(w http.ResponseWriter, r *http.Request) {
	groupID, err := parseID(r, "id")
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}

	var g models.ChannelGroup
	if err := json.NewDecoder(r.Body).Decode(&g); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}

	if err := s.store.UpdateChannelGroup(r.Context(), groupID, &g); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErr(w, http.StatusNotFound, fmt.Errorf("channel group %d not found", groupID))
			return
		}
		writeErr(w, http.StatusInternalServerError, err)
		return
	}

	g.ID = groupID
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	groupID, err := parseID(r, "id")
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}

	if err := s.store.DeleteChannelGroup(r.Context(), groupID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErr(w, http.StatusNotFound, fmt.Errorf("channel group %d not found", groupID))
			return
		}
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeNoContent(w)
}

// --- auto-assign rule handlers ---

func (s *Server) handleListAutoAssignRules(w http.ResponseWriter, r *http.Request) {
	ruleList, err := s.store.ListAutoAssignRules(r.Context())
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	if ruleList == nil {
		ruleList = []models.AutoAssignRule{}
	}
	writeJSON(w, http.StatusOK, ruleList)
}

func (s *Server) handleCreateAutoAssignRule(w http.ResponseWriter, r *http.Request) {
	var rule models.AutoAssignRule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}
	if err := rules.ValidateAutoAssignRule(&rule); err != nil {
		writeErr(w, http.StatusUnprocessableEntity, err)
		return
	}

	id, err := s.store.CreateAutoAssignRule(r.Context(), &rule)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	rule.ID = id
	writeJSON(w, http.StatusCreated, rule)
}

func (s *Server) handleGetAutoAssignRule(w http.ResponseWriter, r *http.Request) {
	rule, ok := s.loadAutoAssignRule(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

func (s *Server) handleUpdateAutoAssignRule(w http.ResponseWriter, r *http.Request) {
	ruleID, err := parseID(r, "id")
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}

	var rule models.AutoAssignRule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}
	if err := rules.ValidateAutoAssignRule(&rule); err != nil {
		writeErr(w, http.StatusUnprocessableEntity, err)
		return
	}

	if err := s.store.UpdateAutoAssignRule(r.Context(), ruleID, &rule); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErr(w, http.StatusNotFound, fmt.Errorf("auto-assign rule %d not found", ruleID))
			return
		}
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	rule.ID = ruleID
	writeJSON(w, http.StatusOK, rule)
}

func (s *Server) handleDeleteAutoAssignRule(w http.ResponseWriter, r *http.Request) {
	ruleID, err := parseID(r, "id")
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}

	if err := s.store.DeleteAutoAssignRule(r.Context(), ruleID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErr(w, http.StatusNotFound, fmt.Errorf("auto-assign rule %d not found", ruleID))
			return
		}
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeNoContent(w)
}

type toggleRequest struct {
	Enabled bool `json:"enabled"`
}

func (s *Server) handleToggleAutoAssignRule(w http.ResponseWriter, r *http.Request) {
	ruleID, err := parseID(r, "id")
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}

	var req toggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}

	if err := s.store.SetAutoAssignRuleEnabled(r.Context(), ruleID, req.Enabled); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErr(w, http.StatusNotFound, fmt.Errorf("auto-assign rule %d not found", ruleID))
			return
		}
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rule_id": ruleID, "enabled": req.Enabled})
}

// handlePreviewAutoAssignBody previews an unsaved rule from the request
// body. Dry run; nothing is probed or written.
func (s *Server) handlePreviewAutoAssignBody(w http.ResponseWriter, r *http.Request) {
	var rule models.AutoAssignRule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}
	if err := rules.ValidateAutoAssignRule(&rule); err != nil {
		writeErr(w, http.StatusUnprocessableEntity, err)
		return
	}
	s.writeAutoAssignPreview(w, r, &rule)
}

func (s *Server) handlePreviewAutoAssignRule(w http.ResponseWriter, r *http.Request) {
	rule, ok := s.loadAutoAssignRule(w, r)
	if !ok {
		return
	}
	s.writeAutoAssignPreview(w, r, rule)
}

func (s *Server) writeAutoAssignPreview(w http.ResponseWriter, r *http.Request, rule *models.AutoAssignRule) {
	preview, err := s.engine.PreviewAutoAssign(r.Context(), rule)
	if err != nil {
		var verr *rules.ValidationError
		if errors.As(err, &verr) {
			writeErr(w, http.StatusUnprocessableEntity, err)
			return
		}
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

// executeRequest is the body of an execute call. Stream defaults to true;
// a non-streaming caller waits for the execution to finish and gets the
// summary envelope instead of an execution handle.
type executeRequest struct {
	Stream    *bool  `json:"stream"`
	ChannelID *int64 `json:"channel_id"`
}

func decodeExecuteRequest(r *http.Request) (executeRequest, error) {
	var req executeRequest
	if r.ContentLength == 0 {
		return req, nil
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, fmt.Errorf("invalid JSON: %w", err)
	}
	return req, nil
}

func (req executeRequest) streaming() bool {
	return req.Stream == nil || *req.Stream
}

func (s *Server) handleExecuteAutoAssignRule(w http.ResponseWriter, r *http.Request) {
	rule, ok := s.loadAutoAssignRule(w, r)
	if !ok {
		return
	}
	req, err := decodeExecuteRequest(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	if !rule.Enabled {
		writeErr(w, http.StatusConflict, fmt.Errorf("auto-assign rule %d is disabled", rule.ID))
		return
	}

	if req.streaming() {
		exec := s.engine.StartAutoAssign(rule)
		writeJSON(w, http.StatusAccepted, map[string]any{
			"stream":       true,
			"execution_id": exec.ID,
		})
		return
	}
	writeJSON(w, http.StatusOK, s.engine.RunAutoAssign(r.Context(), rule))
}

func (s *Server) loadAutoAssignRule(w http.ResponseWriter, r *http.Request) (*models.AutoAssignRule, bool) {
	ruleID, err := parseID(r, "id")
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return nil, false
	}
	rule, err := s.store.GetAutoAssignRuleByID(r.Context(), ruleID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErr(w, http.StatusNotFound, fmt.Errorf("auto-assign rule %d not found", ruleID))
			return nil, false
		}
		writeErr(w, http.StatusInternalServerError, err)
		return nil, false
	}
	return rule, true
}

// --- sorting rule handlers ---

func (s *Server) handleListSortingRules(w http.ResponseWriter, r *http.Request) {
	ruleList, err := s.store.ListSortingRules(r.Context())
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	if ruleList == nil {
		ruleList = []models.SortingRule{}
	}
	writeJSON(w, http.StatusOK, ruleList)
}

func (s *Server) handleCreateSortingRule(w http.ResponseWriter, r *http.Request) {
	var rule models.SortingRule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}
	if err := rules.ValidateSortingRule(&rule); err != nil {
		writeErr(w, http.StatusUnprocessableEntity, err)
		return
	}

	id, err := s.store.CreateSortingRule(r.Context(), &rule)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	rule.ID = id
	writeJSON(w, http.StatusCreated, rule)
}

func (s *Server) handleGetSortingRule(w http.ResponseWriter, r *http.Request) {
	rule, ok := s.loadSortingRule(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

func (s *Server) handleUpdateSortingRule(w http.ResponseWriter, r *http.Request) {
	ruleID, err := parseID(r, "id")
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}

	var rule models.SortingRule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}
	if err := rules.ValidateSortingRule(&rule); err != nil {
		writeErr(w, http.StatusUnprocessableEntity, err)
		return
	}

	if err := s.store.UpdateSortingRule(r.Context(), ruleID, &rule); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErr(w, http.StatusNotFound, fmt.Errorf("sorting rule %d not found", ruleID))
			return
		}
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	rule.ID = ruleID
	writeJSON(w, http.StatusOK, rule)
}

func (s *Server) handleDeleteSortingRule(w http.ResponseWriter, r *http.Request) {
	ruleID, err := parseID(r, "id")
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}

	if err := s.store.DeleteSortingRule(r.Context(), ruleID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErr(w, http.StatusNotFound, fmt.Errorf("sorting rule %d not found", ruleID))
			return
		}
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeNoContent(w)
}

func (s *Server) handleToggleSortingRule(w http.ResponseWriter, r *http.Request) {
	ruleID, err := parseID(r, "id")
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}

	var req toggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}

	if err := s.store.SetSortingRuleEnabled(r.Context(), ruleID, req.Enabled); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErr(w, http.StatusNotFound, fmt.Errorf("sorting rule %d not found", ruleID))
			return
		}
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rule_id": ruleID, "enabled": req.Enabled})
}

func (s *Server) handlePreviewSortingRule(w http.ResponseWriter, r *http.Request) {
	rule, ok := s.loadSortingRule(w, r)
	if !ok {
		return
	}
	channelID, err := optionalChannelID(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}

	preview, err := s.engine.PreviewSorting(r.Context(), rule, channelID)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

func (s *Server) handleExecuteSortingRule(w http.ResponseWriter, r *http.Request) {
	rule, ok := s.loadSortingRule(w, r)
	if !ok {
		return
	}
	req, err := decodeExecuteRequest(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	if !rule.Enabled {
		writeErr(w, http.StatusConflict, fmt.Errorf("sorting rule %d is disabled", rule.ID))
		return
	}
	channelID, err := optionalChannelID(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	// The body's channel_id wins over the query parameter.
	if req.ChannelID != nil {
		channelID = req.ChannelID
	}

	if req.streaming() {
		exec := s.engine.StartSorting(rule, channelID)
		writeJSON(w, http.StatusAccepted, map[string]any{
			"stream":       true,
			"execution_id": exec.ID,
		})
		return
	}
	writeJSON(w, http.StatusOK, s.engine.RunSorting(r.Context(), rule, channelID))
}

func (s *Server) handleExecuteAllSortingRules(w http.ResponseWriter, r *http.Request) {
	req, err := decodeExecuteRequest(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	if req.streaming() {
		exec := s.engine.StartAllRules()
		writeJSON(w, http.StatusAccepted, map[string]any{
			"stream":       true,
			"execution_id": exec.ID,
		})
		return
	}
	writeJSON(w, http.StatusOK, s.engine.RunAllRules(r.Context()))
}

func (s *Server) loadSortingRule(w http.ResponseWriter, r *http.Request) (*models.SortingRule, bool) {
	ruleID, err := parseID(r, "id")
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return nil, false
	}
	rule, err := s.store.GetSortingRuleByID(r.Context(), ruleID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErr(w, http.StatusNotFound, fmt.Errorf("sorting rule %d not found", ruleID))
			return nil, false
		}
		writeErr(w, http.StatusInternalServerError, err)
		return nil, false
	}
	return rule, true
}

func optionalChannelID(r *http.Request) (*int64, error) {
	v := r.URL.Query().Get("channel_id")
	if v == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid channel_id: %s", v)
	}
	return &id, nil
}

// --- progress handler ---

// handleProgress streams an execution's progress as SSE. A client that
// reconnects with the same execution id gets the full replay buffer first.
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	executionID := r.PathValue("executionID")
	if executionID == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("execution id is required"))
		return
	}

	if err := progress.ServeSSE(w, r, s.hub, executionID); err != nil {
		if errors.Is(err, progress.ErrNoFeed) {
			writeErr(w, http.StatusNotFound, fmt.Errorf("execution %s not found", executionID))
			return
		}
		writeErr(w, http.StatusInternalServerError, err)
	}
}

// --- middleware ---

// withCORS adds CORS headers to every response and handles preflight OPTIONS requests.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Flush forwards to the wrapped writer so SSE streaming works through the
// logging middleware.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// withLogging wraps a handler and logs each request with method, path, status, and duration.
func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		duration := time.Since(start)
		statusCode := sw.status

		// Color the status code for terminal readability.
		statusColor := colorForStatus(statusCode)
		methodColor := colorForMethod(r.Method)

		log.Printf("%s %-7s %s\x1b[0m  %s %3d %s\x1b[0m  %s",
			methodColor, r.Method, "\x1b[0m",
			statusColor, statusCode, "\x1b[0m",
			formatDuration(duration),
		)
		if r.URL.RawQuery != "" {
			log.Printf("         %s?%s", r.URL.Path, r.URL.RawQuery)
		} else {
			log.Printf("         %s", r.URL.Path)
		}
	})
}

func colorForStatus(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "\x1b[32m" // green
	case code >= 300 && code < 400:
		return "\x1b[36m" // cyan
	case code >= 400 && code < 500:
		return "\x1b[33m" // yellow
	default:
		return "\x1b[31m" // red
	}
}

func colorForMethod(method string) string {
	switch method {
	case http.MethodGet:
		return "\x1b[36m" // cyan
	case http.MethodPost:
		return "\x1b[32m" // green
	case http.MethodPatch, http.MethodPut:
		return "\x1b[33m" // yellow
	case http.MethodDelete:
		return "\x1b[31m" // red
	default:
		return "\x1b[37m" // white
	}
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%dus", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	default:
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
}

// --- helpers ---

// APIError is the standard error envelope for all error responses.
type APIError struct {
	Status int    `json:"status"`
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// parseID extracts a path parameter by name and parses it as int64.
func parseID(r *http.Request, param string) (int64, error) {
	v := r.PathValue(param)
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %s", param, v)
	}
	return id, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("writeJSON: %v", err)
	}
}

func writeNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func writeErr(w http.ResponseWriter, status int, err error) {
	if status >= 500 {
		log.Printf("ERROR %d: %v", status, err)
	}
	writeJSON(w, status, APIError{
		Status: status,
		Error:  http.StatusText(status),
		Detail: err.Error(),
	})
}

// --- docs handlers ---

func handleOpenAPISpec(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(api.OpenAPISpec)
}

func handleSwaggerUI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, swaggerUIHTML)
}

const swaggerUIHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>StreamPlus API Docs</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
  <style>html{box-sizing:border-box;overflow-y:scroll}*,*:before,*:after{box-sizing:inherit}body{margin:0;background:#fafafa}</style>
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    SwaggerUIBundle({
      url: "/api/docs/openapi.yaml",
      dom_id: "#swagger-ui",
      presets: [SwaggerUIBundle.presets.apis, SwaggerUIBundle.SwaggerUIStandalonePreset],
      layout: "BaseLayout",
    });
  </script>
</body>
</html>`

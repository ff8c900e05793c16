package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mitchellh/mapstructure"

	"github.com/jonesrussell/north-cloud/leadfinder/internal/events"
	"github.com/jonesrussell/north-cloud/leadfinder/internal/extract"
	"github.com/jonesrussell/north-cloud/leadfinder/internal/lead"
	"github.com/jonesrussell/north-cloud/leadfinder/internal/logger"
	"github.com/jonesrussell/north-cloud/leadfinder/internal/pipeline"
	"github.com/jonesrussell/north-cloud/leadfinder/internal/scoring"
	"github.com/jonesrussell/north-cloud/leadfinder/internal/search"
	"github.com/jonesrussell/north-cloud/leadfinder/internal/session"
)

// SessionCookie names the cookie holding the session token.
const SessionCookie = "session"

// Discoverer runs discovery. *pipeline.Pipeline implements it.
type Discoverer interface {
	Scrape(ctx context.Context, req pipeline.Request) pipeline.Result
	ScrapeProgress(ctx context.Context, req pipeline.Request, em *events.Emitter)
	Process(page *extract.ScrapedPage, sctx *scoring.Context) lead.LeadRecord
}

// ErrorResponse is the body of every 4xx/5xx reply.
type ErrorResponse struct {
	Error     string    `json:"error"`
	Code      string    `json:"code"`
	Timestamp time.Time `json:"timestamp"`
}

// ScrapeRequest is the body of POST /scrape.
type ScrapeRequest struct {
	Input      string           `json:"input"`
	MaxResults int              `json:"max_results"`
	Domains    []string         `json:"domains"`
	Context    *scoring.Context `json:"context"`
}

// ProcessRequest is the body of POST /process. Response is the loosely
// typed scraped page record.
type ProcessRequest struct {
	Response any            `json:"response"`
	Context  map[string]any `json:"context"`
}

// SessionResponse is the body of GET /auth/session.
type SessionResponse struct {
	LoggedIn bool           `json:"logged_in"`
	Profile  map[string]any `json:"profile,omitempty"`
}

// HandlerConfig holds request defaults.
type HandlerConfig struct {
	// DefaultDomains backs domains=all on the stream endpoint.
	DefaultDomains    []string
	HeartbeatInterval time.Duration
}

// Handler holds the HTTP request handlers.
type Handler struct {
	discover Discoverer
	sessions session.Store
	metrics  http.Handler
	cfg      HandlerConfig
	logger   logger.Logger
}

// NewHandler creates a handler. sessions and metrics may be nil, which
// disables their routes.
func NewHandler(discover Discoverer, sessions session.Store, metrics http.Handler, cfg HandlerConfig, log logger.Logger) *Handler {
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if len(cfg.DefaultDomains) == 0 {
		cfg.DefaultDomains = search.DefaultSources
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Handler{
		discover: discover,
		sessions: sessions,
		metrics:  metrics,
		cfg:      cfg,
		logger:   log,
	}
}

// Root is the liveness probe.
func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Scrape runs discovery to completion and returns the result.
func (h *Handler) Scrape(c *gin.Context) {
	var body ScrapeRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		h.badRequest(c, "INVALID_REQUEST", "Invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(body.Input) == "" {
		h.badRequest(c, "VALIDATION_ERROR", "input is required")
		return
	}

	req := pipeline.Request{
		Query:      strings.TrimSpace(body.Input),
		MaxResults: body.MaxResults,
		Context:    body.Context,
	}
	if len(body.Domains) > 0 {
		req.Sources = search.ParseDomains(strings.Join(body.Domains, ","), h.cfg.DefaultDomains)
	}

	c.JSON(http.StatusOK, h.discover.Scrape(c.Request.Context(), req))
}

// ScrapeStream runs discovery and streams its events. Only request
// validation failures get a non-200 status; everything after the headers
// is reported in-band.
func (h *Handler) ScrapeStream(c *gin.Context) {
	req, err := h.streamRequest(c)
	if err != nil {
		h.badRequest(c, "VALIDATION_ERROR", err.Error())
		return
	}

	log := logger.FromContext(c.Request.Context(), h.logger)
	log.Info("Stream started",
		logger.String("query", req.Query),
		logger.Int("max_results", req.MaxResults),
		logger.Strings("sources", req.Sources),
	)

	b := events.Start(c.Request.Context(), log, func(ctx context.Context, em *events.Emitter) {
		h.discover.ScrapeProgress(ctx, req, em)
	})

	setSSEHeaders(c.Writer)
	c.Status(http.StatusOK)
	c.Writer.Flush()

	streamEvents(c, b, h.cfg.HeartbeatInterval, log)
}

func (h *Handler) streamRequest(c *gin.Context) (pipeline.Request, error) {
	input := strings.TrimSpace(c.Query("input"))
	if input == "" {
		return pipeline.Request{}, errors.New("input is required")
	}

	req := pipeline.Request{Query: input}

	if raw := c.Query("max_results"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return pipeline.Request{}, fmt.Errorf("max_results must be a positive integer, got %q", raw)
		}
		req.MaxResults = n
	}

	if raw := c.Query("domains"); raw != "" {
		req.Sources = search.ParseDomains(raw, h.cfg.DefaultDomains)
	}

	return req, nil
}

// Process scores one already-scraped page. Malformed or empty records
// produce a zero-rank record carrying an error marker, never a 4xx.
func (h *Handler) Process(c *gin.Context) {
	var body ProcessRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		h.badRequest(c, "INVALID_REQUEST", "Invalid request body: "+err.Error())
		return
	}

	record, failed := pageRecord(body.Response)
	if failed != nil {
		c.JSON(http.StatusOK, failed)
		return
	}

	var page extract.ScrapedPage
	if err := decodeLoose(record, &page); err != nil {
		logger.FromContext(c.Request.Context(), h.logger).Warn("Malformed page record", logger.Error(err))
		c.JSON(http.StatusOK, lead.Failed("malformed record: "+err.Error()))
		return
	}

	var sctx *scoring.Context
	if len(body.Context) > 0 {
		sctx = &scoring.Context{}
		if err := decodeLoose(body.Context, sctx); err != nil {
			h.badRequest(c, "INVALID_REQUEST", "Invalid context: "+err.Error())
			return
		}
	}

	c.JSON(http.StatusOK, h.discover.Process(&page, sctx))
}

// decodeLoose decodes a JSON object into out, accepting single values
// where lists are expected and numbers encoded as strings.
// pageRecord returns the response object, or the failed record to answer
// with when there is none. A bare string carries no scraped fields.
func pageRecord(v any) (map[string]any, *lead.LeadRecord) {
	switch rec := v.(type) {
	case map[string]any:
		if len(rec) == 0 {
			failed := lead.Failed(lead.NoDataMessage)
			return nil, &failed
		}
		return rec, nil
	case nil, string:
		failed := lead.Failed(lead.NoDataMessage)
		return nil, &failed
	default:
		failed := lead.Failed(fmt.Sprintf("malformed record: expected an object, got %s", jsonKind(rec)))
		return nil, &failed
	}
}

func jsonKind(v any) string {
	switch v.(type) {
	case []any:
		return "array"
	case float64:
		return "number"
	case bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func decodeLoose(in map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
		TagName:          "mapstructure",
	})
	if err != nil {
		return fmt.Errorf("create decoder: %w", err)
	}
	if err = dec.Decode(in); err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	return nil
}

// Session reports whether the session cookie names a live session.
func (h *Handler) Session(c *gin.Context) {
	token, err := c.Cookie(SessionCookie)
	if err != nil || token == "" {
		c.JSON(http.StatusOK, SessionResponse{LoggedIn: false})
		return
	}

	s, err := h.sessions.Get(c.Request.Context(), token)
	if err != nil {
		if !errors.Is(err, session.ErrNotFound) {
			logger.FromContext(c.Request.Context(), h.logger).Warn("Session lookup failed", logger.Error(err))
		}
		c.JSON(http.StatusOK, SessionResponse{LoggedIn: false})
		return
	}

	c.JSON(http.StatusOK, SessionResponse{LoggedIn: true, Profile: s.Profile})
}

// Logout deletes the session and clears the cookie.
func (h *Handler) Logout(c *gin.Context) {
	if token, err := c.Cookie(SessionCookie); err == nil && token != "" {
		if delErr := h.sessions.Delete(c.Request.Context(), token); delErr != nil {
			logger.FromContext(c.Request.Context(), h.logger).Warn("Session delete failed", logger.Error(delErr))
		}
	}
	c.SetCookie(SessionCookie, "", -1, "/", "", false, true)
	c.Status(http.StatusNoContent)
}

func (h *Handler) badRequest(c *gin.Context, code, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:     msg,
		Code:      code,
		Timestamp: time.Now(),
	})
}

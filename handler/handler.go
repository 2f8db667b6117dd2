// Package handler exposes episode generation and lookup as an API Gateway Lambda.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"podcast-agent/internal/config"
	"podcast-agent/internal/domain"
	"podcast-agent/internal/repository"
	"podcast-agent/internal/usecase"
)

const (
	correlationHeader = "X-Correlation-Id"
	episodesPath      = "/episodes/"
)

const (
	codeNotFound           usecase.ErrorCode = "EPISODE_NOT_FOUND"
	codeMethodNotAllowed   usecase.ErrorCode = "METHOD_NOT_ALLOWED"
	codeStoreNotConfigured usecase.ErrorCode = "STORE_NOT_CONFIGURED"
)

// EpisodeProducer is the use case behind POST /episodes.
type EpisodeProducer interface {
	Produce(ctx context.Context, in usecase.EpisodeInput) (usecase.EpisodeOutput, error)
}

// EpisodeReader serves GET /episodes/{id}.
type EpisodeReader interface {
	GetEpisode(ctx context.Context, episodeID string) (domain.EpisodeMetadata, []domain.TurnRecord, error)
}

type episodeRequest struct {
	Host     string `json:"host"`
	Guest    string `json:"guest"`
	Theme    string `json:"theme"`
	Tone     string `json:"tone"`
	Duration int    `json:"duration"`
	Model    string `json:"model"`
}

type metadataResponse struct {
	Host      string `json:"host"`
	Guest     string `json:"guest"`
	Theme     string `json:"theme"`
	Tone      string `json:"tone"`
	Language  string `json:"language"`
	Duration  string `json:"duration"`
	Model     string `json:"model"`
	CreatedAt string `json:"createdAt"`
}

type turnResponse struct {
	Speaker   string `json:"speaker"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

type episodeResponse struct {
	EpisodeID    string           `json:"episodeId"`
	Metadata     metadataResponse `json:"metadata"`
	Conversation []turnResponse   `json:"conversation"`
}

type errorResponse struct {
	Error         string `json:"error"`
	CorrelationID string `json:"correlationId"`
}

type Handler struct {
	producer EpisodeProducer
	reader   EpisodeReader
	store    bool
	logger   *zap.Logger
}

type Option func(*Handler)

// WithStore persists every generated episode.
func WithStore(store bool) Option {
	return func(h *Handler) {
		h.store = store
	}
}

// WithReader enables GET /episodes/{id}.
func WithReader(r EpisodeReader) Option {
	return func(h *Handler) {
		h.reader = r
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

func NewHandler(p EpisodeProducer, opts ...Option) (*Handler, error) {
	if p == nil {
		return nil, errors.New("handler: episode producer must not be nil")
	}
	h := &Handler{producer: p, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	correlationID := headerValue(event.Headers, correlationHeader)
	if correlationID == "" {
		correlationID = newCorrelationID()
	}
	log := h.logger.With(zap.String("correlation_id", correlationID))

	switch event.HTTPMethod {
	case http.MethodPost:
		return h.produce(ctx, event, correlationID, log), nil
	case http.MethodGet:
		return h.getEpisode(ctx, event, correlationID, log), nil
	default:
		return errorJSON(http.StatusMethodNotAllowed, codeMethodNotAllowed, correlationID), nil
	}
}

func (h *Handler) produce(ctx context.Context, event events.APIGatewayProxyRequest, correlationID string, log *zap.Logger) events.APIGatewayProxyResponse {
	var req episodeRequest
	if strings.TrimSpace(event.Body) != "" {
		if err := json.Unmarshal([]byte(event.Body), &req); err != nil {
			log.Info("rejecting malformed body", zap.Error(err))
			return errorJSON(http.StatusBadRequest, usecase.ErrorConfigurationInvalid, correlationID)
		}
	}

	started := time.Now()
	out, err := h.producer.Produce(ctx, usecase.EpisodeInput{
		Overrides: config.Overrides{
			Host:     req.Host,
			Guest:    req.Guest,
			Theme:    req.Theme,
			Tone:     req.Tone,
			Duration: req.Duration,
			Model:    req.Model,
		},
		Preflight: true,
		Store:     h.store,
	})
	if err != nil {
		status, code := mapError(err)
		log.Warn("episode request failed", zap.Int("status", status), zap.String("code", string(code)), zap.Error(err))
		return errorJSON(status, code, correlationID)
	}

	log.Info("episode generated",
		zap.String("episode_id", out.Metadata.EpisodeID),
		zap.Int("turns", out.Transcript.Len()),
		zap.Duration("elapsed", time.Since(started)),
	)
	return respondJSON(http.StatusOK, toResponse(out.Metadata, out.Transcript.Turns()), correlationID)
}

func (h *Handler) getEpisode(ctx context.Context, event events.APIGatewayProxyRequest, correlationID string, log *zap.Logger) events.APIGatewayProxyResponse {
	if h.reader == nil {
		return errorJSON(http.StatusNotImplemented, codeStoreNotConfigured, correlationID)
	}
	id := episodeID(event)
	if id == "" {
		return errorJSON(http.StatusNotFound, codeNotFound, correlationID)
	}

	meta, turns, err := h.reader.GetEpisode(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return errorJSON(http.StatusNotFound, codeNotFound, correlationID)
	}
	if err != nil {
		log.Error("episode lookup failed", zap.String("episode_id", id), zap.Error(err))
		return errorJSON(http.StatusInternalServerError, usecase.ErrorInternal, correlationID)
	}
	return respondJSON(http.StatusOK, toResponse(meta, turns), correlationID)
}

// episodeID prefers the {id} path parameter and falls back to the raw path.
func episodeID(event events.APIGatewayProxyRequest) string {
	if id := strings.TrimSpace(event.PathParameters["id"]); id != "" {
		return id
	}
	id, ok := strings.CutPrefix(event.Path, episodesPath)
	if !ok {
		return ""
	}
	return strings.Trim(id, "/ ")
}

func toResponse(m domain.EpisodeMetadata, turns []domain.TurnRecord) episodeResponse {
	resp := episodeResponse{
		EpisodeID: m.EpisodeID,
		Metadata: metadataResponse{
			Host:      m.Host,
			Guest:     m.Guest,
			Theme:     m.Theme,
			Tone:      m.Tone,
			Language:  m.Language,
			Duration:  m.Duration,
			Model:     m.Model,
			CreatedAt: m.CreatedAt.Format(time.RFC3339),
		},
		Conversation: make([]turnResponse, 0, len(turns)),
	}
	for _, turn := range turns {
		resp.Conversation = append(resp.Conversation, turnResponse{
			Speaker:   turn.Speaker,
			Text:      turn.Text,
			Timestamp: turn.CreatedAt.Format(time.RFC3339Nano),
		})
	}
	return resp
}

func mapError(err error) (int, usecase.ErrorCode) {
	var uerr *usecase.Error
	if !errors.As(err, &uerr) {
		return http.StatusInternalServerError, usecase.ErrorInternal
	}
	switch uerr.Code {
	case usecase.ErrorConfigurationInvalid:
		return http.StatusBadRequest, uerr.Code
	case usecase.ErrorBackendUnavailable:
		return http.StatusServiceUnavailable, uerr.Code
	case usecase.ErrorBackend:
		return http.StatusBadGateway, uerr.Code
	default:
		return http.StatusInternalServerError, usecase.ErrorInternal
	}
}

func errorJSON(status int, code usecase.ErrorCode, correlationID string) events.APIGatewayProxyResponse {
	return respondJSON(status, errorResponse{Error: string(code), CorrelationID: correlationID}, correlationID)
}

func respondJSON(status int, body any, correlationID string) events.APIGatewayProxyResponse {
	raw, err := json.Marshal(body)
	if err != nil {
		status = http.StatusInternalServerError
		raw = []byte(`{"error":"INTERNAL_ERROR"}`)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type":    "application/json; charset=utf-8",
			correlationHeader: correlationID,
		},
		Body: string(raw),
	}
}

// headerValue looks a header up case-insensitively.
func headerValue(headers map[string]string, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

var newCorrelationID = func() string {
	return uuid.NewString()
}

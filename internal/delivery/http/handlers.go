package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"crystaltides/internal/application"
	"crystaltides/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const maxBodyBytes = 16 << 10

type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	codes  application.LinkCodeService
	links  application.LinkService
	health Pinger
	logger application.Logger
}

func NewHandler(codes application.LinkCodeService, links application.LinkService, health Pinger, logger application.Logger) *Handler {
	return &Handler{
		codes:  codes,
		links:  links,
		health: health,
		logger: logger,
	}
}

type issueCodeRequest struct {
	Source      string `json:"source"`
	SourceID    string `json:"source_id"`
	DisplayName string `json:"display_name"`
}

type issueCodeResponse struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

type redeemRequest struct {
	Code string `json:"code"`
	// Source is the side redeeming the code: game or web.
	Source string `json:"source"`
	ID     string `json:"id"`
	Name   string `json:"name"`
}

type redeemResponse struct {
	Message  string                `json:"message"`
	Identity models.IdentityRecord `json:"identity"`
	Evicted  []string              `json:"evicted,omitempty"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health.Ping(r.Context()); err != nil {
			h.logger.Warn("health check failed: %v", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleIssueCode(w http.ResponseWriter, r *http.Request) {
	var req issueCodeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	source, ok := apiSource(req.Source)
	if !ok || req.SourceID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad_request", Message: "source must be game or web and source_id is required"})
		return
	}

	lc, err := h.codes.Issue(r.Context(), source, req.SourceID, req.DisplayName)
	if err != nil {
		h.logger.Error("issue code failed (request %s): %v", middleware.GetReqID(r.Context()), err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal", Message: "could not issue code"})
		return
	}

	writeJSON(w, http.StatusCreated, issueCodeResponse{Code: lc.Code, ExpiresAt: lc.ExpiresAt})
}

func (h *Handler) handleRedeem(w http.ResponseWriter, r *http.Request) {
	var req redeemRequest
	if !decodeBody(w, r, &req) {
		return
	}

	source, ok := apiSource(req.Source)
	if !ok || req.Code == "" || req.ID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad_request", Message: "code, id and a source of game or web are required"})
		return
	}

	res, err := h.links.Link(r.Context(), req.Code, application.Claimant{Source: source, ID: req.ID, Name: req.Name})
	if err != nil {
		h.writeLinkError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, redeemResponse{Message: res.Message, Identity: res.Record, Evicted: res.Evicted})
}

func (h *Handler) handleGetIdentity(w http.ResponseWriter, r *http.Request) {
	rec, err := h.links.IdentityByGame(r.Context(), chi.URLParam(r, "gameID"))
	if err != nil {
		h.writeLinkError(w, r, err)
		return
	}
	if rec == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not_found", Message: "no identity for this game account"})
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) writeLinkError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, application.ErrInvalidClaimant) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad_request", Message: err.Error()})
		return
	}
	kind := application.KindOf(err)
	status := linkErrorStatus(kind)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request %s failed: %v", middleware.GetReqID(r.Context()), err)
	}
	writeJSON(w, status, errorResponse{Error: kind.String(), Message: linkErrorMessage(kind)})
}

func linkErrorStatus(kind application.LinkErrorKind) int {
	switch kind {
	case application.KindNotFound:
		return http.StatusNotFound
	case application.KindExpired:
		return http.StatusGone
	case application.KindPrerequisiteMissing:
		return http.StatusConflict
	case application.KindUnsupportedSource:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func linkErrorMessage(kind application.LinkErrorKind) string {
	switch kind {
	case application.KindNotFound:
		return "code not found"
	case application.KindExpired:
		return "code expired"
	case application.KindPrerequisiteMissing:
		return "a game account must be linked first"
	case application.KindUnsupportedSource:
		return "code cannot be redeemed from this side"
	default:
		return "temporary failure, try again later"
	}
}

// apiSource accepts the two namespaces that reach the API. Chat codes are
// issued by the bot.
func apiSource(s string) (models.Source, bool) {
	src, err := models.ParseSource(s)
	if err != nil || src == models.SourceChat {
		return "", false
	}
	return src, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad_request", Message: "invalid request body"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

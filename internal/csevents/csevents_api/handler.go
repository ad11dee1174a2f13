package csevents_api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"ms-csevents/internal/csevents/db"
	"ms-csevents/internal/csevents/service"
	"ms-csevents/internal/logger"
	"ms-csevents/internal/models"
	"ms-csevents/internal/utils"
)

type EventDBLayer interface {
	ListEvents(ctx context.Context) ([]models.CSEvent, error)
	GetEventByID(ctx context.Context, id int64) (*models.CSEvent, error)
}

type ScrapeRunner interface {
	Run(ctx context.Context, trigger string) (*service.RunReport, error)
}

type Handler struct {
	DB       EventDBLayer
	Pipeline ScrapeRunner
	APIKey   string
	Logger   *logger.Logger
}

func NewHandler(store EventDBLayer, pipeline ScrapeRunner, apiKey string, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.NewNop()
	}
	return &Handler{DB: store, Pipeline: pipeline, APIKey: apiKey, Logger: log}
}

// RegisterRoutes mounts the cs-events routes on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.ListEvents)
	r.Get("/{id}", h.GetEvent)
	r.With(RequireAPIKey(h.APIKey, h.Logger)).Post("/scrape", h.TriggerScrape)
}

func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.DB.ListEvents(r.Context())
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("Failed to list events: %v", err))
		h.send(w, http.StatusInternalServerError, utils.ErrorResponse{Error: "Database error", Message: err.Error()})
		return
	}
	h.send(w, http.StatusOK, NewEventListResponse(events))
}

func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.send(w, http.StatusNotFound, utils.ErrorResponse{Error: "Event not found"})
		return
	}

	event, err := h.DB.GetEventByID(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		h.send(w, http.StatusNotFound, utils.ErrorResponse{Error: "Event not found"})
		return
	}
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("Failed to load event %d: %v", id, err))
		h.send(w, http.StatusInternalServerError, utils.ErrorResponse{Error: "Database error", Message: err.Error()})
		return
	}
	h.send(w, http.StatusOK, NewEventResponse(*event))
}

// TriggerScrape runs the pipeline on the request goroutine.
func (h *Handler) TriggerScrape(w http.ResponseWriter, r *http.Request) {
	report, err := h.Pipeline.Run(r.Context(), models.TriggerManual)

	var commitErr *service.CommitError
	switch {
	case err == nil:
		h.send(w, http.StatusOK, NewScrapeResponse(report))
	case errors.Is(err, service.ErrRunInProgress):
		h.send(w, http.StatusConflict, utils.ErrorResponse{Error: "Scraping already in progress"})
	case errors.As(err, &commitErr):
		h.send(w, http.StatusInternalServerError, utils.ErrorResponse{Error: "Database error", Message: commitErr.Err.Error()})
	default:
		h.send(w, http.StatusInternalServerError, utils.ErrorResponse{Error: "Scraping failed", Message: err.Error()})
	}
}

func (h *Handler) send(w http.ResponseWriter, status int, data interface{}) {
	if err := utils.WriteJSON(w, status, data); err != nil {
		h.Logger.Warn("API", fmt.Sprintf("Failed to write response: %v", err))
	}
}

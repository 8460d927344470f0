package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/trunov/mediashrink/internal/config"
	"github.com/trunov/mediashrink/internal/entities"
	"github.com/trunov/mediashrink/internal/repository/status"
)

const (
	missingFieldsMessage = "Missing required fields in request body: bucket and key"
	invalidBodyMessage   = "Invalid request body"
)

type UseCase interface {
	ProcessImage(ctx context.Context, bucket, key string) error
	ProcessVideo(ctx context.Context, bucket, key string) error
	Status(ctx context.Context, key string) (entities.ProcessingRecord, error)
}

type Handler struct {
	useCase   UseCase
	cfg       *config.Config
	validator *validator.Validate
}

func New(useCase UseCase, cfg *config.Config) *Handler {
	return &Handler{
		useCase:   useCase,
		cfg:       cfg,
		validator: validator.New(),
	}
}

func (h *Handler) ProcessVideo(w http.ResponseWriter, r *http.Request) {
	h.process(w, r, h.useCase.ProcessVideo, "Video processed successfully", "Failed to process video")
}

func (h *Handler) ProcessImage(w http.ResponseWriter, r *http.Request) {
	h.process(w, r, h.useCase.ProcessImage, "Image processed successfully", "Failed to process image")
}

func (h *Handler) process(w http.ResponseWriter, r *http.Request, run func(context.Context, string, string) error, okMessage, failMessage string) {
	req, ok := h.decodeProcessRequest(w, r)
	if !ok {
		return
	}

	if err := run(r.Context(), req.Bucket, req.Key); err != nil {
		writeJSON(w, http.StatusInternalServerError, FailureResponse{
			Message: failMessage,
			Error:   err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, SuccessResponse{
		StatusCode: http.StatusOK,
		Body:       MessageResponse{Message: okMessage},
	})
}

func (h *Handler) decodeProcessRequest(w http.ResponseWriter, r *http.Request) (ProcessRequest, bool) {
	var req ProcessRequest

	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.Server.MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, MessageResponse{Message: "request body exceeds maximum allowed size"})
			return req, false
		}
		log.Ctx(r.Context()).Warn().Err(err).Msg("invalid process request body")
		writeJSON(w, http.StatusBadRequest, MessageResponse{Message: invalidBodyMessage})
		return req, false
	}

	if err := h.validator.Struct(req); err != nil {
		log.Ctx(r.Context()).Warn().Interface("fields", validationErrorsToMap(err)).Msg("process request rejected")
		writeJSON(w, http.StatusBadRequest, MessageResponse{Message: missingFieldsMessage})
		return req, false
	}
	return req, true
}

// GetStatus returns the last known record for the object key in the path
// remainder, so keys containing slashes work unescaped.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	if key == "" {
		writeJSONError(w, "object key is required", http.StatusBadRequest)
		return
	}

	rec, err := h.useCase.Status(r.Context(), key)
	if errors.Is(err, status.ErrNotFound) {
		writeJSONError(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Str("object_key", key).Msg("failed to read status")
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

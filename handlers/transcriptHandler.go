package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"lessonchat/models"
	"lessonchat/services"

	"github.com/gorilla/mux"
)

type TranscriptHandler struct {
	service *services.TranscriptService
}

func NewTranscriptHandler(service *services.TranscriptService) *TranscriptHandler {
	return &TranscriptHandler{service: service}
}

func (h *TranscriptHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/transcripts", h.GetTranscripts).Methods("GET")
	router.HandleFunc("/transcripts/{id:[0-9]+}", h.GetTranscriptByID).Methods("GET")
}

func (h *TranscriptHandler) GetTranscripts(w http.ResponseWriter, r *http.Request) {
	transcripts, err := h.service.GetTranscriptsByUser(r.Context(), visitorFrom(r).UserID)
	if err != nil {
		h.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve transcripts")
		return
	}

	h.writeJSONResponse(w, http.StatusOK, transcripts)
}

func (h *TranscriptHandler) GetTranscriptByID(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid transcript ID")
		return
	}

	transcript, err := h.service.GetTranscriptForUser(r.Context(), visitorFrom(r).UserID, id)
	if err != nil {
		if errors.Is(err, models.ErrTranscriptNotFound) {
			h.writeErrorResponse(w, http.StatusNotFound, err.Error())
		} else {
			h.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve transcript")
		}
		return
	}

	h.writeJSONResponse(w, http.StatusOK, transcript)
}

func (h *TranscriptHandler) writeJSONResponse(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func (h *TranscriptHandler) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

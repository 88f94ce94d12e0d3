package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"lessonchat/models"
	"lessonchat/services"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type LessonHandler struct {
	lessons *services.LessonService
	chat    *services.ChatService
}

func NewLessonHandler(lessons *services.LessonService, chat *services.ChatService) *LessonHandler {
	return &LessonHandler{lessons: lessons, chat: chat}
}

func (h *LessonHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/lessons", h.GetLessons).Methods("GET")
	router.HandleFunc("/lessons/{slug}", h.GetLesson).Methods("GET")
	router.HandleFunc("/lessons/{slug}", h.PostLesson).Methods("POST")
}

func (h *LessonHandler) GetLessons(w http.ResponseWriter, r *http.Request) {
	terms := services.ParseSearchTerms(r.URL.Query().Get("q"))

	lessons, err := h.lessons.SearchLessons(r.Context(), terms)
	if err != nil {
		h.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve lessons")
		return
	}

	h.writeJSONResponse(w, http.StatusOK, lessons)
}

// GetLesson renders the lesson page, or the summary when asked for with
// chat_summary (or the older success flag), or resets with start_over.
func (h *LessonHandler) GetLesson(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["slug"]
	query := r.URL.Query()
	visitor := visitorFrom(r)

	switch {
	case query.Has("chat_summary") || query.Has("success"):
		summary, err := h.chat.Summary(r.Context(), visitor, slug)
		if errors.Is(err, services.ErrLessonIncomplete) {
			h.redirectToLesson(w, r, slug)
			return
		}
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		renderHTML(w, http.StatusOK, "summary", summary)

	case query.Has("start_over"):
		h.startOver(w, r, slug)

	default:
		page, err := h.chat.Page(r.Context(), visitor, slug)
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		renderHTML(w, http.StatusOK, "lesson", page)
	}
}

// PostLesson takes either a start_over flag or one chat turn.
func (h *LessonHandler) PostLesson(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["slug"]

	if err := r.ParseForm(); err != nil {
		h.writeValidationError(w, "Invalid form payload")
		return
	}

	if r.PostForm.Has("start_over") {
		h.startOver(w, r, slug)
		return
	}

	req := services.TurnRequest{
		UserMessage:        r.PostForm.Get("user_message"),
		ResponseKeyConcept: r.PostForm.Get("response_key_concept"),
	}

	result, err := h.chat.Turn(r.Context(), visitorFrom(r), slug, req)
	if err != nil {
		var verr *services.ValidationError
		if errors.As(err, &verr) {
			h.writeValidationError(w, verr.Message)
			return
		}
		h.writeServiceError(w, err)
		return
	}

	if result.Complete {
		w.Header().Set("HX-Redirect", result.RedirectURL)
		w.WriteHeader(http.StatusOK)
		return
	}

	renderHTML(w, http.StatusOK, "chat", result.Chat)
}

func (h *LessonHandler) startOver(w http.ResponseWriter, r *http.Request, slug string) {
	view, err := h.chat.StartOver(r.Context(), visitorFrom(r), slug)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	renderHTML(w, http.StatusOK, "chat", view)
}

func (h *LessonHandler) redirectToLesson(w http.ResponseWriter, r *http.Request, slug string) {
	url := (&models.Lesson{Slug: slug}).URL()
	if r.Header.Get("HX-Request") != "" {
		w.Header().Set("HX-Redirect", url)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, url, http.StatusSeeOther)
}

func (h *LessonHandler) writeServiceError(w http.ResponseWriter, err error) {
	if errors.Is(err, models.ErrLessonNotFound) {
		h.writeErrorResponse(w, http.StatusNotFound, "Lesson not found")
		return
	}
	log.Errorf("Lesson request failed: %v", err)
	h.writeErrorResponse(w, http.StatusInternalServerError, "Failed to process lesson request")
}

func (h *LessonHandler) writeValidationError(w http.ResponseWriter, message string) {
	h.writeJSONResponse(w, http.StatusBadRequest, map[string]string{
		"status":  "error",
		"message": message,
	})
}

func (h *LessonHandler) writeJSONResponse(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func (h *LessonHandler) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

package http

import (
	"net/http"

	"kwikly/internal/app"
	"kwikly/internal/domain"

	"github.com/go-chi/chi/v5"
)

type quizHandler struct {
	quizzes *app.QuizService
}

func (h *quizHandler) create(w http.ResponseWriter, r *http.Request) {
	var draft domain.Quiz
	if err := decodeJSON(r, &draft); err != nil {
		respondError(w, r, err)
		return
	}
	quiz, err := h.quizzes.Create(r.Context(), userIDFromContext(r.Context()), draft)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, quiz)
}

func (h *quizHandler) update(w http.ResponseWriter, r *http.Request) {
	var draft domain.Quiz
	if err := decodeJSON(r, &draft); err != nil {
		respondError(w, r, err)
		return
	}
	quiz, err := h.quizzes.Update(r.Context(), userIDFromContext(r.Context()), chi.URLParam(r, "id"), draft)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, quiz)
}

func (h *quizHandler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.quizzes.Delete(r.Context(), userIDFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *quizHandler) get(w http.ResponseWriter, r *http.Request) {
	quiz, err := h.quizzes.Get(r.Context(), userIDFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, quiz)
}

func (h *quizHandler) getByCode(w http.ResponseWriter, r *http.Request) {
	quiz, err := h.quizzes.GetByCode(r.Context(), userIDFromContext(r.Context()), chi.URLParam(r, "code"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, quiz)
}

func (h *quizHandler) listMine(w http.ResponseWriter, r *http.Request) {
	quizzes, err := h.quizzes.ListMine(r.Context(), userIDFromContext(r.Context()))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, quizzes)
}

func (h *quizHandler) submit(w http.ResponseWriter, r *http.Request) {
	var sub app.Submission
	if err := decodeJSON(r, &sub); err != nil {
		respondError(w, r, err)
		return
	}
	result, err := h.quizzes.Submit(r.Context(), userIDFromContext(r.Context()), chi.URLParam(r, "id"), sub)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

type snapshotRequest struct {
	CurrentQuestionIndex int            `json:"currentQuestionIndex"`
	SelectedAnswers      map[int]string `json:"selectedAnswers"`
	TimeLeft             int            `json:"timeLeft"`
}

func (h *quizHandler) getSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.quizzes.RestoreSnapshot(r.Context(), userIDFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

func (h *quizHandler) putSnapshot(w http.ResponseWriter, r *http.Request) {
	var req snapshotRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	snap, err := h.quizzes.SaveSnapshot(r.Context(), userIDFromContext(r.Context()), chi.URLParam(r, "id"), domain.Snapshot{
		CurrentQuestionIndex: req.CurrentQuestionIndex,
		SelectedAnswers:      req.SelectedAnswers,
		TimeLeft:             req.TimeLeft,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

func (h *quizHandler) deleteSnapshot(w http.ResponseWriter, r *http.Request) {
	if err := h.quizzes.ClearSnapshot(r.Context(), userIDFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/rbright/ringbell/internal/diary"
)

const maxBodyBytes = 64 << 10

type handler struct {
	svc    Service
	logger *zap.Logger
}

type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type textRequest struct {
	Text      string `json:"text"`
	Sentiment string `json:"sentiment,omitempty"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type sentimentResponse struct {
	Sentiment string `json:"sentiment"`
}

type feedbackResponse struct {
	Error    string `json:"error,omitempty"`
	Feedback string `json:"feedback"`
}

type analyzeResponse struct {
	Error     string `json:"error,omitempty"`
	Sentiment string `json:"sentiment"`
	Feedback  string `json:"feedback"`
}

type diaryResponse struct {
	Entries []diary.Entry `json:"entries"`
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "OK", Message: "ringbell diary proxy is up"})
}

func (h *handler) sentiment(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeText(w, r)
	if !ok {
		return
	}

	label, err := h.svc.Classify(r.Context(), req.Text)
	switch {
	case errors.Is(err, diary.ErrEmptyText):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "text is required for sentiment analysis"})
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "sentiment analysis failed", Details: err.Error()})
	default:
		writeJSON(w, http.StatusOK, sentimentResponse{Sentiment: string(label)})
	}
}

func (h *handler) feedback(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeText(w, r)
	if !ok {
		return
	}

	message, err := h.svc.Feedback(r.Context(), req.Text, req.Sentiment)
	switch {
	case errors.Is(err, diary.ErrEmptyText):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "text is required to generate feedback"})
	case err != nil:
		writeJSON(w, http.StatusTooManyRequests, feedbackResponse{Error: err.Error(), Feedback: message})
	default:
		writeJSON(w, http.StatusOK, feedbackResponse{Feedback: message})
	}
}

func (h *handler) analyze(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeText(w, r)
	if !ok {
		return
	}

	result, err := h.svc.Analyze(r.Context(), req.Text)
	switch {
	case errors.Is(err, diary.ErrEmptyText):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "text is required for analysis"})
	case errors.Is(err, diary.ErrGeneration):
		writeJSON(w, http.StatusTooManyRequests, analyzeResponse{
			Error:     err.Error(),
			Sentiment: string(result.Sentiment),
			Feedback:  result.Feedback,
		})
	case errors.Is(err, diary.ErrClassification):
		writeJSON(w, http.StatusServiceUnavailable, analyzeResponse{
			Error:     err.Error(),
			Sentiment: string(result.Sentiment),
			Feedback:  result.Feedback,
		})
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "analysis failed", Details: err.Error()})
	default:
		writeJSON(w, http.StatusOK, analyzeResponse{Sentiment: string(result.Sentiment), Feedback: result.Feedback})
	}
}

func (h *handler) diary(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	entries, err := h.svc.Recent(r.Context(), limit)
	switch {
	case errors.Is(err, diary.ErrNoStore):
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "diary storage is disabled"})
	case err != nil:
		h.logger.Error("list diary entries", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "could not list diary entries"})
	default:
		writeJSON(w, http.StatusOK, diaryResponse{Entries: entries})
	}
}

func decodeText(w http.ResponseWriter, r *http.Request) (textRequest, bool) {
	var req textRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON body", Details: err.Error()})
		return textRequest{}, false
	}
	return req, true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

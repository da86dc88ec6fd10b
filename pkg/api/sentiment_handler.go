package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/mimir-aip/sentiment-go/pkg/predict"
)

// WelcomeMessage is returned by GET /welcome
const WelcomeMessage = "Bonjour, ceci est la beta d'un algorithm d'analyse de sentiment"

var sentimentFields = []string{"text", "token"}

// Predictor classifies text with the served model
type Predictor interface {
	Predict(text string) (*predict.Prediction, error)
	Ready() bool
}

// SentimentResponse is the body of a successful prediction
type SentimentResponse struct {
	Text       string `json:"text"`
	Prediction string `json:"prediction"`
	StatusCode int    `json:"status_code"`
}

// SentimentHandler serves the prediction endpoints
type SentimentHandler struct {
	server    *Server
	predictor Predictor
	logger    *zap.Logger
}

// NewSentimentHandler creates a sentiment handler and registers its routes
func NewSentimentHandler(server *Server, predictor Predictor) *SentimentHandler {
	h := &SentimentHandler{server: server, predictor: predictor, logger: server.logger}
	server.HandleFunc("/welcome", h.HandleWelcome, http.MethodGet)
	server.HandleFunc("/sentiment", h.HandleSentiment, http.MethodPost)
	server.HandleFunc("/ready", h.HandleReady, http.MethodGet)
	return h
}

// HandleWelcome handles GET /welcome
func (h *SentimentHandler) HandleWelcome(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, map[string]string{"Message": WelcomeMessage})
}

// HandleReady reports whether a model is loaded
func (h *SentimentHandler) HandleReady(w http.ResponseWriter, r *http.Request) {
	if !h.predictor.Ready() {
		writeJSONResponse(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready", "error": predict.ErrNoModel.Error()})
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]string{"status": "ready"})
}

// HandleSentiment handles POST /sentiment {token, text}
func (h *SentimentHandler) HandleSentiment(w http.ResponseWriter, r *http.Request) {
	var body map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	var missing []string
	for _, field := range sentimentFields {
		if _, ok := body[field]; !ok {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		writeErrorResponse(w, http.StatusBadRequest, strings.Join(missing, ", ")+" missing")
		return
	}

	var token, text string
	if err := json.Unmarshal(body["token"], &token); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "token must be a string")
		return
	}
	if err := json.Unmarshal(body["text"], &text); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "text must be a string")
		return
	}

	if !h.server.validToken(token) {
		writeErrorResponse(w, http.StatusUnauthorized, msgInvalidToken)
		return
	}

	pred, err := h.predictor.Predict(text)
	if errors.Is(err, predict.ErrNoModel) {
		writeErrorResponse(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("Prediction failed", zap.Error(err))
		writeErrorResponse(w, http.StatusInternalServerError, fmt.Sprintf("Prediction failed: %v", err))
		return
	}

	writeJSONResponse(w, http.StatusOK, SentimentResponse{
		Text:       text,
		Prediction: pred.Display,
		StatusCode: http.StatusOK,
	})
}

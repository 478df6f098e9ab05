package handle

import (
	"context"
	"encoding/json"
	"net/http"

	"vision-bot/api/internal/clarifai"
)

// Predictor: то, что нужно хендлерам от клиента Clarifai.
type Predictor interface {
	ModelID() string
	Predict(ctx context.Context, imageSrc string, inBytes bool) (clarifai.Response, error)
}

type Handle struct {
	forModel func(modelID string) Predictor
}

func New(client *clarifai.Client) *Handle {
	return &Handle{
		forModel: func(modelID string) Predictor {
			if modelID == "" || modelID == client.ModelID() {
				return client
			}
			return client.ForModel(modelID)
		},
	}
}

func (h *Handle) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", h.Healthz)
	mux.HandleFunc("/v1/predict", h.Predict)
}

func (h *Handle) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

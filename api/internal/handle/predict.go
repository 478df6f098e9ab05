package handle

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"vision-bot/api/internal/clarifai"
	"vision-bot/api/internal/util"
)

type PredictRequest struct {
	ImageURL string `json:"image_url"`
	ImageB64 string `json:"image_b64"`
	ModelID  string `json:"model_id"`
}

func (h *Handle) Predict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "POST only"})
		return
	}
	var req PredictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad json: " + err.Error()})
		return
	}

	imageURL := strings.TrimSpace(req.ImageURL)
	imageB64 := util.StripDataURL(req.ImageB64)
	switch {
	case imageURL == "" && imageB64 == "":
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "image_url or image_b64 is required"})
		return
	case imageURL != "" && imageB64 != "":
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "only one of image_url, image_b64 is allowed"})
		return
	}
	if imageB64 != "" {
		img, _, err := util.DecodeBase64MaybeDataURL(imageB64)
		if err != nil || len(img) == 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad image_b64"})
			return
		}
		if mime := util.SniffMimeHTTP(img); !util.IsImageMIME(mime) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "image_b64 is not an image: " + mime})
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestDeadline(r))
	defer cancel()

	p := h.forModel(strings.TrimSpace(req.ModelID))
	var (
		out clarifai.Response
		err error
	)
	if imageB64 != "" {
		out, err = p.Predict(ctx, imageB64, true)
	} else {
		out, err = p.Predict(ctx, imageURL, false)
	}
	if err != nil {
		log.Printf("predict model=%s: %v", p.ModelID(), err)
		code := http.StatusBadGateway
		if errors.Is(err, context.DeadlineExceeded) {
			code = http.StatusGatewayTimeout
		}
		writeJSON(w, code, map[string]string{"error": "predict error: " + err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, out)
}

func requestDeadline(r *http.Request) time.Duration {
	deadline := 60 * time.Second
	if ts := r.Header.Get("X-Request-Timeout"); ts != "" {
		if v, _ := strconv.Atoi(ts); v > 0 {
			deadline = time.Duration(v) * time.Second
		}
	} else if ts := r.URL.Query().Get("timeoutSec"); ts != "" {
		if v, _ := strconv.Atoi(ts); v > 0 {
			deadline = time.Duration(v) * time.Second
		}
	}
	return deadline
}

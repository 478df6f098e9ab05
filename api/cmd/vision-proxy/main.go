package main

import (
	"log"
	"net/http"
	"time"

	"vision-bot/api/internal/clarifai"
	"vision-bot/api/internal/config"
	"vision-bot/api/internal/handle"
)

func main() {
	cfg := config.Load()

	client := clarifai.New(cfg.ClarifaiAPIKey, cfg.ClarifaiModelID,
		clarifai.WithBaseURL(cfg.ClarifaiBaseURL),
	)

	mux := http.NewServeMux()
	handle.New(client).Register(mux)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Printf("vision-proxy listening on %s (model=%s)", srv.Addr, cfg.ClarifaiModelID)
	log.Fatal(srv.ListenAndServe())
}

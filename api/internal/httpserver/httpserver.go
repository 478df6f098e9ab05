package httpserver

import (
	"context"
	"log"
	"net/http"
	"time"
)

// Pinger: *sql.DB и всё, что умеет проверять соединение.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Healthz отвечает ok; если db задан, сначала пингует его.
func Healthz(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("db: not ok\n" + err.Error()))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

// StartHTTP вешает healthz на DefaultServeMux (там же живёт webhook tgbotapi) и слушает addr.
func StartHTTP(addr string, db Pinger) error {
	http.HandleFunc("/healthz", Healthz(db))
	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("vision bot"))
	})
	log.Printf("health server listening on %s/healthz", addr)
	return http.ListenAndServe(addr, nil)
}

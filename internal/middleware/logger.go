package middleware

import (
	"bufio"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// statusWriter запоминает статус ответа для логирования
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Hijack пробрасывает перехват соединения к нижележащему ResponseWriter,
// иначе websocket upgrade не проходит через это middleware
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, http.ErrNotSupported
	}

	return hijacker.Hijack()
}

// Logging логирует каждый входящий запрос.
// Уровень зависит от статуса: 4xx — warn, 5xx — error.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(sw, r)

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", sw.status),
				slog.Duration("duration", time.Since(start)),
				slog.String("remote", r.RemoteAddr),
			}

			level := slog.LevelDebug
			if sw.status >= 400 {
				level = slog.LevelWarn
			}

			if sw.status >= 500 {
				level = slog.LevelError
			}

			logger.LogAttrs(r.Context(), level, "📥 HTTP Request", attrs...)
		})
	}
}

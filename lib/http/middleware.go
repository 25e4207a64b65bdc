package http

import (
	"net/http"
	"strings"
	"sync"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

var onlyOnceWarningAllowOrigin sync.Once

// MiddlewareHeaders instantiates middleware that adds every configured
// header line to each response, in the order given. Duplicate names are
// sent as separate lines.
func MiddlewareHeaders(headers []Header) Middleware {
	onlyOnceWarningAllowOrigin.Do(func() {
		for _, h := range headers {
			if h.Name == "Access-Control-Allow-Origin" && h.Value == "*" {
				logrus.Warnf("Allow origin set to *. This can cause serious security problems.")
			}
		}
	})

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, h := range headers {
				w.Header().Add(h.Name, h.Value)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// HasCORS reports whether the header set configures CORS.
func HasCORS(headers []Header) bool {
	for _, h := range headers {
		if strings.HasPrefix(h.Name, "Access-Control-") {
			return true
		}
	}
	return false
}

// MiddlewarePreflight instantiates middleware that answers CORS preflight
// requests. OPTIONS on any path gets 204 No Content with no body; the CORS
// headers themselves are added by MiddlewareHeaders.
func MiddlewarePreflight() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// MiddlewareLog instantiates middleware that logs one line per request
// with the method, path and status code. Logging never fails a request.
// If metrics is non-nil the status code counter is incremented too.
func MiddlewareLog(metrics *Metrics) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			logrus.Infof("%s: %s %s %d", r.RemoteAddr, r.Method, r.URL.Path, status)
			metrics.onResponse(r, status)
		})
	}
}

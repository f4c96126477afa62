package router

import (
	"net"
	"net/http"
	"strings"
)

// middlewareIP rewrites RemoteAddr from proxy headers so logs show the client.
func middlewareIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ip := clientIP(r); ip != "" {
			r.RemoteAddr = ip
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	for _, h := range []string{"True-Client-IP", "X-Real-IP", "X-Forwarded-For"} {
		v, _, _ := strings.Cut(r.Header.Get(h), ",")
		if v = strings.TrimSpace(v); net.ParseIP(v) != nil {
			return v
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && net.ParseIP(host) != nil {
		return host
	}
	return ""
}

package middleware

import (
	"net/http"
	"strings"
)

// TrailingSlash appends "/" to API paths before routing so that clients may
// omit it without being redirected. Gin matches routes before any engine
// middleware runs, so this wraps the engine rather than joining its chain.
func TrailingSlash(prefix string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if strings.HasPrefix(path, prefix) && !strings.HasSuffix(path, "/") {
			last := path[strings.LastIndex(path, "/")+1:]
			// leave format suffixes such as export.csv alone
			if last != "" && !strings.Contains(last, ".") {
				r.URL.Path = path + "/"
				if r.URL.RawPath != "" {
					r.URL.RawPath += "/"
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}

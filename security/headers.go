package security

import "net/http"

// HeadersConfig selects the response headers set by Headers.
type HeadersConfig struct {
	Enabled bool   `mapstructure:"enabled" json:"enabled" yaml:"enabled" default:"true"`
	HSTS    bool   `mapstructure:"hsts" json:"hsts" yaml:"hsts"`
	CSP     string `mapstructure:"csp" json:"csp" yaml:"csp" default:"default-src 'none'"`
}

// Headers sets defensive response headers. Thumbnail responses carry an
// explicit Content-Type, so sniffing is always disabled.
func Headers(cfg HeadersConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !cfg.Enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "no-referrer")
			if cfg.CSP != "" {
				h.Set("Content-Security-Policy", cfg.CSP)
			}
			if cfg.HSTS {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}

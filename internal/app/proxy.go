package app

import (
	"errors"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"OrderNotify/pkg/kit"
)

var ErrBadUpstream = errors.New("upstream url must be absolute http(s)")

// NewReverseProxy forwards requests to target with their original path.
// Shopper credentials stay on this side.
func NewReverseProxy(target string, log *zap.Logger) (http.Handler, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, err
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, ErrBadUpstream
	}
	base := strings.TrimRight(u.Path, "/")

	rp := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(u)
			pr.Out.URL.Path = base + pr.In.URL.Path
			pr.Out.URL.RawPath = ""
			pr.Out.Header.Del("Authorization")
			pr.Out.Header.Del("Cookie")
			pr.SetXForwarded()
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			if log != nil {
				log.Warn("upstream request failed", zap.String("upstream", u.Host), zap.Error(err))
			}
			kit.WriteError(w, r, http.StatusBadGateway, "upstream unavailable", nil)
		},
	}
	return rp, nil
}

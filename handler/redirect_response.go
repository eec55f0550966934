package handler

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/starfederation/datastar-go/datastar"
)

type redirectResponse struct {
	url  string
	code int
}

func (r redirectResponse) Render(w http.ResponseWriter, req *http.Request) error {
	if IsDataStar(req) {
		return datastar.NewSSE(w, req).Redirect(r.url)
	}
	http.Redirect(w, req, r.url, r.code)
	return nil
}

// Redirect creates a 303 See Other redirect.
// DataStar requests are redirected client-side over SSE.
func Redirect(url string) Response {
	return redirectResponse{url: url, code: http.StatusSeeOther}
}

type redirectBackResponse struct {
	fallback string
}

func (r redirectBackResponse) Render(w http.ResponseWriter, req *http.Request) error {
	target := r.fallback
	if ref := req.Header.Get("Referer"); ref != "" && isSameHost(ref, req) {
		target = ref
	}
	return redirectResponse{url: target, code: http.StatusSeeOther}.Render(w, req)
}

// RedirectBack redirects to the same-host referrer or to fallback.
func RedirectBack(fallback string) Response {
	return redirectBackResponse{fallback: fallback}
}

func isSameHost(raw string, r *http.Request) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.Host == "" || u.Host == r.Host
}

// IsLocalPath reports whether p is a site-relative path safe to redirect to.
// Scheme-relative ("//host") and backslash variants are rejected.
func IsLocalPath(p string) bool {
	if p == "" || p[0] != '/' {
		return false
	}
	if len(p) > 1 && (p[1] == '/' || p[1] == '\\') {
		return false
	}
	u, err := url.Parse(p)
	if err != nil {
		return false
	}
	return u.Scheme == "" && u.Host == "" && !strings.ContainsAny(p, "\r\n")
}

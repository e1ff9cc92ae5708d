package myhttp

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

func HostnameWithScheme(r *http.Request) string {
	scheme := "https"
	if r.TLS == nil {
		scheme = "http"
	}

	return fmt.Sprintf("%s://%s", scheme, r.Host)
}

// AddQueryParams appends params to rawURL, keeping any existing ones.
// Values are escaped, except for literal gateway placeholders such as {CHECKOUT_SESSION_ID}.
func AddQueryParams(rawURL string, params url.Values, placeholders map[string]string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("error parsing url %s: %s", rawURL, err)
	}
	q := u.Query()
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	encoded := q.Encode()
	for k, placeholder := range placeholders {
		if encoded != "" {
			encoded += "&"
		}
		encoded += url.QueryEscape(k) + "=" + placeholder
	}
	u.RawQuery = encoded
	return u.String(), nil
}

func BearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(authHeader, "Bearer ")
	if !found {
		return ""
	}
	return strings.TrimSpace(token)
}

func HasBearerToken(r *http.Request, expected string) bool {
	token := BearerToken(r)
	if token == "" || expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(expected)) == 1
}

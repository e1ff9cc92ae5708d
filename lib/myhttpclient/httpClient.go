package myhttpclient

import (
	"net/http"
	"time"

	"github.com/MarcGrol/storefront/lib/mylog"
)

type loggingTransport struct {
	logger mylog.Logger
	next   http.RoundTripper
}

// New returns a client that logs every outbound call and gives up after timeout.
// Bodies are never logged.
func New(component string, timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &loggingTransport{
			logger: mylog.New(component),
			next:   http.DefaultTransport,
		},
	}
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	c := req.Context()
	start := time.Now()
	t.logger.Log(c, "", mylog.SeverityDebug, "HTTP request: %s %s", req.Method, req.URL.Redacted())

	resp, err := t.next.RoundTrip(req)
	if err != nil {
		t.logger.Log(c, "", mylog.SeverityWarn, "HTTP request %s %s failed after %s: %s", req.Method, req.URL.Redacted(), time.Since(start), err)
		return nil, err
	}

	t.logger.Log(c, "", mylog.SeverityDebug, "HTTP resp: %d (%s)", resp.StatusCode, time.Since(start))
	return resp, nil
}

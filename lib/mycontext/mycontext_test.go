package mycontext

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextFromHTTPRequest(t *testing.T) {
	t.Setenv("GOOGLE_CLOUD_PROJECT", "my-project")

	testCases := []struct {
		name    string
		headers map[string]string
		trace   string
	}{
		{
			name:    "No trace headers",
			headers: map[string]string{},
			trace:   "",
		},
		{
			name:    "Cloud trace header",
			headers: map[string]string{"X-Cloud-Trace-Context": "105445aa7843bc8bf206b12000100000/1;o=1"},
			trace:   "projects/my-project/traces/105445aa7843bc8bf206b12000100000",
		},
		{
			name:    "W3C traceparent",
			headers: map[string]string{"traceparent": "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"},
			trace:   "projects/my-project/traces/4bf92f3577b34da6a3ce929d0e0e4736",
		},
		{
			name:    "Malformed traceparent",
			headers: map[string]string{"traceparent": "garbage"},
			trace:   "",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			request, _ := http.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tc.headers {
				request.Header.Set(k, v)
			}

			// when
			c := ContextFromHTTPRequest(request)

			// then
			assert.Equal(t, tc.trace, TraceFromContext(c))
		})
	}
}

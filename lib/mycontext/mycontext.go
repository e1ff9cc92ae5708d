package mycontext

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
)

// CtxTraceContext is a context key for the trace context (used by mylog)
type CtxTraceContext struct{}

func ContextFromHTTPRequest(r *http.Request) context.Context {
	var trace string

	traceID := traceIDFromHeaders(r.Header)
	if traceID != "" {
		trace = fmt.Sprintf("projects/%s/traces/%s", os.Getenv("GOOGLE_CLOUD_PROJECT"), traceID)
	}

	return context.WithValue(r.Context(), CtxTraceContext{}, trace)
}

// traceIDFromHeaders prefers the cloud load balancer header, then a W3C traceparent.
func traceIDFromHeaders(h http.Header) string {
	traceParts := strings.Split(h.Get("X-Cloud-Trace-Context"), "/")
	if len(traceParts[0]) > 0 {
		return traceParts[0]
	}

	// version-traceid-parentid-flags
	parentParts := strings.Split(h.Get("traceparent"), "-")
	if len(parentParts) == 4 && len(parentParts[1]) == 32 {
		return parentParts[1]
	}
	return ""
}

func TraceFromContext(c context.Context) string {
	if c == nil {
		return ""
	}
	trace, _ := c.Value(CtxTraceContext{}).(string)
	return trace
}

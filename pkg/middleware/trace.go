package middleware

import (
	"github.com/Suhaibinator/capi/pkg/common"
	"github.com/google/uuid"
)

// DefaultTraceHeader is the header used to propagate trace IDs.
const DefaultTraceHeader = "X-Request-ID"

// TraceNamespace is the request side-channel namespace used by Trace.
const TraceNamespace = "trace"

const maxIncomingTraceIDLen = 128

// Trace creates a middleware that gives each request a trace ID.
//
// A well-formed incoming ID in header is reused; otherwise a new UUID is generated.
// The ID is stored under TraceNamespace and echoed in the response header.
// An empty header means DefaultTraceHeader.
func Trace(header string) Middleware {
	if header == "" {
		header = DefaultTraceHeader
	}
	return func(req *common.Request, res *common.Response, next common.Next) {
		traceID := req.Header(header)
		if !validTraceID(traceID) {
			traceID = uuid.New().String()
		}

		req.Set(TraceNamespace, "id", traceID)
		res.SetHeader(header, traceID)

		next()
	}
}

// TraceID returns the trace ID stored by Trace, or "" if there is none.
func TraceID(req *common.Request) string {
	if v, ok := req.Get(TraceNamespace, "id"); ok {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// validTraceID accepts printable ASCII without spaces, to keep headers and logs clean.
func validTraceID(id string) bool {
	if id == "" || len(id) > maxIncomingTraceIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		if c := id[i]; c <= ' ' || c > '~' {
			return false
		}
	}
	return true
}

package common

import (
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/Suhaibinator/capi/pkg/codec"
)

// Response wraps the outbound side of a call.
//
// A status code must be chosen with Status before JSON or Text. The body is written at
// most once; any terminal writer called after the response was sent returns
// ErrAlreadyWritten.
type Response struct {
	w         *responseWriter
	code      int
	timerFrom time.Time
}

// NewResponse wraps w.
func NewResponse(w http.ResponseWriter) *Response {
	return &Response{w: &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}}
}

// Status records the status code for the terminal write and returns the response for
// chaining. Like http.ResponseWriter.WriteHeader it panics on codes outside 100-999.
func (r *Response) Status(code int) *Response {
	if code < 100 || code > 999 {
		panic(fmt.Errorf("%w: %d", ErrStatusOutOfRange, code))
	}
	r.code = code
	return r
}

// JSON writes data as a JSON body. Slices and arrays are sent as {"data": data} and a nil
// data is sent as {}.
func (r *Response) JSON(data any) error {
	if r.code == 0 {
		return ErrStatusNotSet
	}
	if r.Written() {
		return ErrAlreadyWritten
	}
	if data == nil {
		data = map[string]any{}
	}
	body, err := codec.MarshalJSON(data)
	if err != nil {
		return err
	}
	r.setDefaultHeader("Content-Type", "application/json")
	return r.write(r.code, body)
}

// Text writes s as a plain text body.
func (r *Response) Text(s string) error {
	if r.code == 0 {
		return ErrStatusNotSet
	}
	if r.Written() {
		return ErrAlreadyWritten
	}
	r.setDefaultHeader("Content-Type", "text/plain; charset=utf-8")
	return r.write(r.code, []byte(s))
}

// End finishes the response with raw as the body, which may be nil. It does not require
// Status; without one the response goes out as 200.
func (r *Response) End(raw []byte) error {
	if r.Written() {
		return ErrAlreadyWritten
	}
	return r.write(r.StatusCode(), raw)
}

// SetHeader sets a response header. Headers set after the terminal write are ignored.
func (r *Response) SetHeader(key, value string) {
	r.w.Header().Set(key, value)
}

// Header returns the response header map.
func (r *Response) Header() http.Header {
	return r.w.Header()
}

// Writer returns an http.ResponseWriter that writes through this response, so standard
// handlers can be mounted as terminal handlers.
func (r *Response) Writer() http.ResponseWriter {
	return r.w
}

// StatusCode returns the final status that was sent, or the pending one. It defaults to
// 200, which is also what net/http sends after an informational 1xx status.
func (r *Response) StatusCode() int {
	if r.w.wroteHeader {
		return r.w.statusCode
	}
	if r.code != 0 && !informational(r.code) {
		return r.code
	}
	return http.StatusOK
}

// informational reports whether code is a 1xx status that net/http sends ahead of the
// final one. 101 Switching Protocols is final.
func informational(code int) bool {
	return code >= 100 && code <= 199 && code != http.StatusSwitchingProtocols
}

// Written reports whether the response has been sent.
func (r *Response) Written() bool {
	return r.w.wroteHeader
}

// BytesWritten returns the number of body bytes sent.
func (r *Response) BytesWritten() int64 {
	return r.w.bytesWritten
}

// StartTimer marks the beginning of a measured span.
func (r *Response) StartTimer() {
	r.timerFrom = time.Now()
}

// EndTimer closes the span opened by StartTimer and sends
// {"duration_ms": <elapsed ms, 3 decimals>, "data": <data>} as JSON.
// Non-string data is JSON-encoded into a string first.
func (r *Response) EndTimer(data any) error {
	if r.timerFrom.IsZero() {
		return ErrTimerNotStarted
	}
	elapsed := time.Since(r.timerFrom)
	if r.Written() {
		return ErrAlreadyWritten
	}

	var payload string
	switch v := data.(type) {
	case string:
		payload = v
	default:
		b, err := codec.MarshalJSON(v)
		if err != nil {
			return err
		}
		payload = string(b)
	}

	ms := float64(elapsed.Nanoseconds()) / float64(time.Millisecond)
	body, err := codec.MarshalJSON(map[string]any{
		"duration_ms": math.Round(ms*1000) / 1000,
		"data":        payload,
	})
	if err != nil {
		return err
	}
	r.w.Header().Set("Content-Type", "application/json")
	return r.write(r.StatusCode(), body)
}

func (r *Response) setDefaultHeader(key, value string) {
	if r.w.Header().Get(key) == "" {
		r.w.Header().Set(key, value)
	}
}

func (r *Response) write(code int, body []byte) error {
	r.w.WriteHeader(code)
	if len(body) == 0 {
		return nil
	}
	_, err := r.w.Write(body)
	return err
}

// responseWriter tracks the status code and body size of the wrapped writer.
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	wroteHeader  bool
	bytesWritten int64
}

// WriteHeader records the status code; only the first final status reaches the wrapped
// writer. Informational codes are passed through without ending the header phase, so the
// body that follows still goes out with an implicit 200, as net/http does.
func (rw *responseWriter) WriteHeader(statusCode int) {
	if rw.wroteHeader {
		return
	}
	if informational(statusCode) {
		rw.ResponseWriter.WriteHeader(statusCode)
		return
	}
	rw.statusCode = statusCode
	rw.wroteHeader = true
	rw.ResponseWriter.WriteHeader(statusCode)
}

// Write sends an implicit 200 if no status was written yet and counts the bytes.
func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += int64(n)
	return n, err
}

// Flush calls the underlying ResponseWriter.Flush if it implements http.Flusher.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap exposes the wrapped writer to http.ResponseController.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

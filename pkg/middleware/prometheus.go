package middleware

import (
	"time"

	"github.com/Suhaibinator/capi/pkg/common"
	"github.com/Suhaibinator/capi/pkg/metrics"
)

// Metrics records every call that passes through it on collector.
// Routes are labelled by their exact path, which is also the registered endpoint.
func Metrics(collector *metrics.Collector) Middleware {
	return func(req *common.Request, res *common.Response, next common.Next) {
		start := time.Now()
		done := collector.Begin()
		defer func() {
			done()
			collector.Observe(req.Method, req.Path, res.StatusCode(), time.Since(start), res.BytesWritten())
		}()

		next()
	}
}

package common

// MiddlewareChain is an ordered sequence of middleware.
type MiddlewareChain []Middleware

// NewMiddlewareChain creates a new middleware chain. Nil middlewares are dropped.
func NewMiddlewareChain(middlewares ...Middleware) MiddlewareChain {
	return MiddlewareChain(nil).Append(middlewares...)
}

// Append returns a new chain with middlewares added at the end.
// The receiver is never mutated and the result does not share its backing array.
func (c MiddlewareChain) Append(middlewares ...Middleware) MiddlewareChain {
	out := make(MiddlewareChain, 0, len(c)+len(middlewares))
	out = appendNonNil(out, c)
	return appendNonNil(out, middlewares)
}

// Prepend returns a new chain with middlewares added at the beginning.
func (c MiddlewareChain) Prepend(middlewares ...Middleware) MiddlewareChain {
	out := make(MiddlewareChain, 0, len(c)+len(middlewares))
	out = appendNonNil(out, middlewares)
	return appendNonNil(out, c)
}

// Contains reports whether a middleware with the same identity is already in the chain.
func (c MiddlewareChain) Contains(mw Middleware) bool {
	id := MiddlewareID(mw)
	for _, m := range c {
		if MiddlewareID(m) == id {
			return true
		}
	}
	return false
}

// Run drives one call through the chain and then through h.
//
// Each call gets its own cursor. next moves the cursor one slot forward and invokes the
// middleware found there; once the cursor passes the last middleware, h runs. Further
// calls to next after h has run are ignored, so h runs at most once.
func (c MiddlewareChain) Run(req *Request, res *Response, h Handler) {
	s := &chainState{chain: c, handler: h, req: req, res: res, cursor: -1}
	s.next()
}

type chainState struct {
	chain   MiddlewareChain
	handler Handler
	req     *Request
	res     *Response
	cursor  int
}

func (s *chainState) next() {
	s.cursor++
	switch {
	case s.cursor < len(s.chain):
		s.chain[s.cursor](s.req, s.res, s.next)
	case s.cursor == len(s.chain):
		if s.handler != nil {
			s.handler(s.req, s.res)
		}
	}
}

func appendNonNil(dst, src MiddlewareChain) MiddlewareChain {
	for _, mw := range src {
		if mw == nil {
			continue
		}
		dst = append(dst, mw)
	}
	return dst
}

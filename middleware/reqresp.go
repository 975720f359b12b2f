package middleware

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/xiongwc/abtree/abterr"
)

// ReqRespHandler processes one request for a registered service, returning
// a response or an error.
type ReqRespHandler func(ctx context.Context, request any) (any, error)

// ReqResp is spec §4.9's request/response channel: register(service,
// handler) installs a single handler per service name (re-registration
// replaces it); call(service, request) awaits that handler, converting its
// failure modes into the closed abterr taxonomy (NoService, ServiceError,
// Timeout, Cancelled). Grounded on a2a/a2a.go's agentExecutor.Execute/Cancel
// request/response/cancel shape — the concrete a2aproject/a2a-go dependency
// that file imports isn't in the retrieved pack and is dropped (see
// SPEC_FULL.md DOMAIN STACK), but its request-comes-in/single-handler/
// cancellation-propagates shape is kept and reimplemented over plain
// channels here.
type ReqResp struct {
	Base

	mu       sync.RWMutex
	handlers map[string]ReqRespHandler
}

// NewReqResp constructs an empty ReqResp middleware named name.
func NewReqResp(name string) *ReqResp {
	return &ReqResp{Base: NewBase(name), handlers: make(map[string]ReqRespHandler)}
}

// Start is a no-op: ReqResp has no background loop of its own.
func (r *ReqResp) Start(ctx context.Context) error { return nil }

// Stop is a no-op.
func (r *ReqResp) Stop(ctx context.Context) error { return nil }

// Register installs handler for service, replacing any previous handler.
func (r *ReqResp) Register(service string, handler ReqRespHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[service] = handler
}

// Deregister removes service's handler, if any.
func (r *ReqResp) Deregister(service string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers, service)
}

type reqRespResult struct {
	response any
	err      error
}

// Call invokes service's handler with request, awaiting its result or ctx's
// cancellation/deadline, whichever comes first. A call to an unregistered
// service fails immediately with NoService; a handler error or panic is
// wrapped as ServiceError; a context deadline is reported as Timeout, any
// other cancellation as Cancelled.
func (r *ReqResp) Call(ctx context.Context, service string, request any) (any, error) {
	r.mu.RLock()
	handler, ok := r.handlers[service]
	r.mu.RUnlock()
	if !ok {
		return nil, abterr.New(abterr.NoService, service, "no handler registered for service")
	}

	done := make(chan reqRespResult, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- reqRespResult{err: abterr.Wrap(abterr.ServiceError, service, "handler panicked", fmt.Errorf("%v", rec))}
			}
		}()
		resp, err := handler(ctx, request)
		if err != nil {
			done <- reqRespResult{err: abterr.Wrap(abterr.ServiceError, service, "handler returned an error", err)}
			return
		}
		done <- reqRespResult{response: resp}
	}()

	select {
	case res := <-done:
		return res.response, res.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, abterr.Wrap(abterr.Timeout, service, "call timed out", ctx.Err())
		}
		return nil, abterr.Wrap(abterr.Cancelled, service, "call cancelled", ctx.Err())
	}
}

// CallWithTimeout is Call with a per-call timeout applied on top of ctx, per
// spec §5 ("Middleware call supports an optional per-call timeout that
// surfaces as Timeout").
func (r *ReqResp) CallWithTimeout(ctx context.Context, service string, request any, timeout time.Duration) (any, error) {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return r.Call(cctx, service, request)
}

package middleware

import (
	"fmt"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/go-chi/chi/v5"
)

// chatRouteHeader mirrors handlers.RouteHeader; the chat handler sets it
// before streaming.
const chatRouteHeader = "X-Chat-Route"

// SentryMiddleware opens a transaction per request and recovers panics into
// the hub. Transactions are renamed to the matched chi route once it is known,
// so /resources/{id} groups under one name. Without an initialized client it
// only wraps the request.
func SentryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub := sentry.GetHubFromContext(r.Context())
		if hub == nil {
			hub = sentry.CurrentHub().Clone()
		}

		options := []sentry.SpanOption{
			sentry.WithOpName("http.server"),
			sentry.WithTransactionSource(sentry.SourceURL),
		}
		if trace := r.Header.Get(sentry.SentryTraceHeader); trace != "" {
			options = append(options, sentry.ContinueFromHeaders(trace, r.Header.Get(sentry.SentryBaggageHeader)))
		}

		transaction := sentry.StartTransaction(r.Context(), r.Method+" "+r.URL.Path, options...)
		defer transaction.Finish()

		r = r.WithContext(sentry.SetHubOnContext(transaction.Context(), hub))

		hub.Scope().SetRequest(r)
		if requestID := GetRequestID(r.Context()); requestID != "" {
			hub.Scope().SetTag("request_id", requestID)
			transaction.SetTag("request_id", requestID)
		}

		defer func() {
			if err := recover(); err != nil {
				transaction.Status = sentry.SpanStatusInternalError
				hub.RecoverWithContext(r.Context(), err)
				panic(err)
			}
		}()

		rec := &sentryResponseRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				transaction.Name = r.Method + " " + pattern
				transaction.Source = sentry.SourceRoute
			}
		}
		if route := rec.Header().Get(chatRouteHeader); route != "" {
			transaction.SetTag("chat_route", route)
		}

		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		transaction.Status = spanStatus(status)
		transaction.SetData("http.response.status_code", status)

		// handler errors are captured where they happen
		if status >= 500 {
			hub.CaptureMessage(fmt.Sprintf("%s: HTTP %d", transaction.Name, status))
		}
	})
}

func spanStatus(status int) sentry.SpanStatus {
	switch status {
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge:
		return sentry.SpanStatusInvalidArgument
	case http.StatusUnauthorized:
		return sentry.SpanStatusUnauthenticated
	case http.StatusNotFound:
		return sentry.SpanStatusNotFound
	case http.StatusBadGateway:
		return sentry.SpanStatusUnavailable
	}
	switch {
	case status < 400:
		return sentry.SpanStatusOK
	case status < 500:
		return sentry.SpanStatusFailedPrecondition
	default:
		return sentry.SpanStatusInternalError
	}
}

type sentryResponseRecorder struct {
	http.ResponseWriter
	status int
}

func (r *sentryResponseRecorder) WriteHeader(status int) {
	if r.status == 0 {
		r.status = status
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *sentryResponseRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func (r *sentryResponseRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

package handler

import (
	"net/http"
	"strconv"
	"time"

	"vescollector/database"
	"vescollector/internal/auth"
	"vescollector/internal/chaos"
	"vescollector/internal/dispatcher"
	"vescollector/internal/models"
	"vescollector/internal/pending"
	"vescollector/internal/schema"
	prom "vescollector/prometheus"

	"github.com/SOLUCIONESSYCOM/scribe"
	"github.com/google/uuid"
)

// EventListener serves the event listener and throttling state routes.
type EventListener struct {
	// Route labels metrics and journal records.
	Route        string
	Schema       *schema.Schema
	Auth         *auth.Authenticator
	Store        pending.Store
	Logger       *scribe.Scribe
	Console      *Console
	MaxBodyBytes int64

	// Optional collaborators; nil disables them.
	Journal  Journal
	Metrics  *prom.Metrics
	Chaos    *chaos.Engine
	ChaosCfg *models.ChaosInjection
}

// Handle validates, authenticates and answers one event, handing over the
// pending command list if there is one.
func (h *EventListener) Handle(r *http.Request) dispatcher.Response {
	start := time.Now()
	ctx := r.Context()

	body := readBody(ctx, r, h.MaxBodyBytes, h.Logger)

	h.Logger.InfoCtx(ctx).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("body_bytes", len(body)).
		Msg("Event listener request")
	h.Logger.DebugCtx(ctx).
		Str("authorization_user", auth.Username(r.Header.Get("Authorization"))).
		Str("content_type", r.Header.Get("Content-Type")).
		Msg("Event listener headers")

	if h.Chaos != nil && h.ChaosCfg != nil {
		delay, code := h.Chaos.Apply(h.ChaosCfg)
		if delay > 0 {
			h.Logger.WarnCtx(ctx).Int("delay_ms", int(delay.Milliseconds())).Msg("Delaying request by chaos injection")
			if err := chaos.Sleep(ctx, delay); err != nil {
				h.Logger.WarnCtx(ctx).AnErr("error", err).Msg("Request cancelled during chaos delay")
			}
		}
		if code > 0 {
			h.Logger.WarnCtx(ctx).Int("status_code", code).Msg("Request aborted by chaos injection")
			resp := dispatcher.Response{StatusCode: code}
			h.finish(r, start, body, schema.Result{Kind: schema.Skipped, Reason: "aborted by chaos injection"}, false, resp)
			return resp
		}
	}

	result := h.Schema.Validate(body)
	logValidation(ctx, h.Logger, h.Console, "Event", result, body)
	if h.Metrics != nil {
		h.Metrics.EventValidation.WithLabelValues(h.Route, result.Kind.String()).Inc()
	}

	if !h.Auth.Authenticate(r.Header.Get("Authorization")) {
		h.Logger.WarnCtx(ctx).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Msg("Failed to authenticate")
		h.Console.Printf("Failed to authenticate agent credentials\n")
		if h.Metrics != nil {
			h.Metrics.AuthFailures.WithLabelValues(h.Route).Inc()
		}

		resp := dispatcher.Response{
			StatusCode:  http.StatusUnauthorized,
			ContentType: dispatcher.ContentTypeJSON,
			Body:        auth.FailureBody(),
		}
		h.finish(r, start, body, result, false, resp)
		return resp
	}

	h.Logger.InfoCtx(ctx).Msg("Authenticated OK")

	list, err := h.Store.Drain(ctx)
	if err != nil {
		h.Logger.ErrorCtx(ctx).AnErr("error", err).Msg("Error draining pending command list")
		list = nil
	}

	var resp dispatcher.Response
	if list != nil {
		h.Logger.InfoCtx(ctx).Str("command_list", string(list)).Msg("Sending pending commandList in the response")
		h.Console.PrintJSON("Sending pending commandList in the response:", list)
		if h.Metrics != nil {
			h.Metrics.CommandsDelivered.Inc()
		}

		resp = dispatcher.Response{
			StatusCode:  http.StatusAccepted,
			ContentType: dispatcher.ContentTypeJSON,
			Body:        list,
		}
	} else {
		h.Logger.DebugCtx(ctx).Msg("No pending commandList in the response")
		resp = dispatcher.Response{StatusCode: http.StatusAccepted}
	}

	h.finish(r, start, body, result, true, resp)
	return resp
}

// finish records metrics and the journal entry for a response. Neither can
// change the response.
func (h *EventListener) finish(r *http.Request, start time.Time, body []byte, result schema.Result, authenticated bool, resp dispatcher.Response) {
	ctx := r.Context()

	if h.Metrics != nil {
		h.Metrics.EventsReceived.WithLabelValues(h.Route, strconv.Itoa(resp.StatusCode)).Inc()
		h.Metrics.ObserveRequest(h.Route, r.Method, resp.StatusCode, start)
	}

	if h.Journal == nil {
		return
	}

	record := &database.EventRecord{
		UUID:             uuid.New().String(),
		TraceID:          dispatcher.TraceID(ctx),
		ReceivedAt:       start,
		Method:           r.Method,
		Path:             r.URL.Path,
		RemoteAddr:       r.RemoteAddr,
		Authenticated:    authenticated,
		Validation:       result.Kind.String(),
		ValidationReason: result.Reason,
		RequestBody:      string(body),
		ResponseStatus:   resp.StatusCode,
		ResponseBody:     string(resp.Body),
	}

	if err := h.Journal.AddOperation(record); err != nil {
		h.Logger.ErrorCtx(ctx).
			Str("uuid", record.UUID).
			AnErr("error", err).
			Msg("Error adding event to journal")
		if h.Metrics != nil {
			h.Metrics.JournalWriteFailure.Inc()
		}
	}
}

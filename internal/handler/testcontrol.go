package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"vescollector/internal/command"
	"vescollector/internal/dispatcher"
	"vescollector/internal/pending"
	"vescollector/internal/schema"
	prom "vescollector/prometheus"

	"github.com/SOLUCIONESSYCOM/scribe"
)

// TestControl lets an operator inspect and replace the pending command list.
// It does not authenticate callers.
type TestControl struct {
	Route        string
	Schema       *schema.Schema
	Store        pending.Store
	Logger       *scribe.Scribe
	Console      *Console
	MaxBodyBytes int64
	Metrics      *prom.Metrics
}

// Get returns the pending command list without clearing it.
func (h *TestControl) Get(r *http.Request) dispatcher.Response {
	start := time.Now()
	ctx := r.Context()

	list, err := h.Store.Peek(ctx)
	if err != nil {
		h.Logger.ErrorCtx(ctx).AnErr("error", err).Msg("Error reading pending command list")
		resp := dispatcher.Response{
			StatusCode:  http.StatusInternalServerError,
			ContentType: dispatcher.ContentTypeText,
			Body:        []byte("pending command store unavailable"),
		}
		h.Metrics.ObserveRequest(h.Route, r.Method, resp.StatusCode, start)
		return resp
	}

	if list == nil {
		list = json.RawMessage("null")
	}

	h.Logger.InfoCtx(ctx).Str("command_list", string(list)).Msg("TestControl peek of pending commandList")

	resp := dispatcher.Response{
		StatusCode:  http.StatusOK,
		ContentType: dispatcher.ContentTypeJSON,
		Body:        list,
	}
	h.Metrics.ObserveRequest(h.Route, r.Method, resp.StatusCode, start)
	return resp
}

// Post replaces the pending command list with the request body. A body that
// is not JSON leaves the current value in place.
func (h *TestControl) Post(r *http.Request) dispatcher.Response {
	start := time.Now()
	ctx := r.Context()

	body := readBody(ctx, r, h.MaxBodyBytes, h.Logger)

	h.Logger.InfoCtx(ctx).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("body_bytes", len(body)).
		Msg("TestControl request")

	result := h.Schema.Validate(body)
	logValidation(ctx, h.Logger, h.Console, "TestControl input", result, body)

	resp := dispatcher.Response{StatusCode: http.StatusAccepted}
	outcome := "stored"

	if result.Kind == schema.MalformedJSON {
		outcome = "unparseable"
		h.Logger.WarnCtx(ctx).Msg("TestControl body is not JSON, keeping the current pending commandList")
	} else {
		var compact bytes.Buffer
		if err := json.Compact(&compact, body); err != nil {
			compact.Reset()
			compact.Write(body)
		}

		if err := h.Store.Set(ctx, compact.Bytes()); err != nil {
			outcome = "store_error"
			h.Logger.ErrorCtx(ctx).AnErr("error", err).Msg("Error storing pending command list")
			resp = dispatcher.Response{
				StatusCode:  http.StatusInternalServerError,
				ContentType: dispatcher.ContentTypeText,
				Body:        []byte("pending command store unavailable"),
			}
		} else {
			h.Logger.InfoCtx(ctx).
				Str("commands", command.Summarize(compact.Bytes())).
				Msg("TestControl pending commandList replaced")
		}
	}

	if h.Metrics != nil {
		h.Metrics.TestControlUpdates.WithLabelValues(outcome).Inc()
	}
	h.Metrics.ObserveRequest(h.Route, r.Method, resp.StatusCode, start)
	return resp
}

package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"vescollector/database"
	"vescollector/internal/schema"

	"github.com/SOLUCIONESSYCOM/scribe"
)

// Journal records handled events. *database.BatchManager satisfies it.
type Journal interface {
	AddOperation(record *database.EventRecord) error
}

// Console prints operator diagnostics. Writes are serialised and write
// errors are ignored.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

func NewConsole(w io.Writer) *Console {
	if w == nil {
		w = io.Discard
	}
	return &Console{w: w}
}

func (c *Console) Printf(format string, args ...interface{}) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintf(c.w, format, args...)
}

// Print writes block in a single call so concurrent requests do not
// interleave their lines.
func (c *Console) Print(block string) {
	c.Printf("%s", block)
}

// PrintJSON prints a heading followed by body, indented when it is JSON.
func (c *Console) PrintJSON(heading string, body []byte) {
	c.Print(jsonBlock(heading, body))
}

func jsonBlock(heading string, body []byte) string {
	return heading + "\n" + pretty(body) + "\n"
}

func pretty(body []byte) string {
	var out bytes.Buffer
	if err := json.Indent(&out, body, "", "    "); err != nil {
		return string(body)
	}
	return out.String()
}

// readBody reads at most the declared Content-Length, capped at max. A
// missing or zero length reads nothing.
func readBody(ctx context.Context, r *http.Request, max int64, logger *scribe.Scribe) []byte {
	if r.Body == nil || r.ContentLength <= 0 {
		return []byte{}
	}

	length := r.ContentLength
	if max > 0 && length > max {
		logger.WarnCtx(ctx).
			Int("content_length", int(length)).
			Int("max_body_bytes", int(max)).
			Msg("Request body larger than allowed, truncating")
		length = max
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, length))
	if err != nil || int64(len(body)) < length {
		logger.WarnCtx(ctx).
			Int("content_length", int(r.ContentLength)).
			Int("read", len(body)).
			AnErr("error", err).
			Msg("Request body shorter than declared")
	}

	return body
}

// logValidation reports a validation outcome. It never fails.
func logValidation(ctx context.Context, logger *scribe.Scribe, console *Console, what string, result schema.Result, body []byte) {
	switch result.Kind {
	case schema.Valid:
		logger.InfoCtx(ctx).Msg(what + " is valid!")
		console.PrintJSON("Valid body decoded & checked against schema OK:", body)
	case schema.Skipped:
		logger.InfoCtx(ctx).Msg(what + " is valid JSON but not checked against schema!")
		console.PrintJSON("Valid JSON body (no schema checking) decoded:", body)
	case schema.MalformedJSON:
		logger.ErrorCtx(ctx).Str("reason", result.Reason).Msg(what + " body is not valid JSON")
		console.Printf("JSON body not valid: %s\n%s\n", result.Reason, body)
	case schema.SchemaInvalid:
		logger.ErrorCtx(ctx).Str("reason", result.Reason).Msg("Schema is not valid!")
		console.Printf("Schema is not valid! %s\n", result.Reason)
	case schema.DataInvalid:
		logger.WarnCtx(ctx).Str("reason", result.Reason).Msg(what + " is not valid against schema!")
		console.Print(fmt.Sprintf("%s is not valid against schema! %s\n", what, result.Reason) +
			jsonBlock("Bad JSON body decoded:", body))
	}

	logger.DebugCtx(ctx).Str("body", string(body)).Msg("Decoded body")
}

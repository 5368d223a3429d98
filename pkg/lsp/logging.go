package lsp

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/creachadair/jrpc2"
	"github.com/rs/zerolog"

	"github.com/walteh/tagmatch/pkg/debug"
)

// LSPWriter is an io.Writer that forwards zerolog JSON entries to the client
// as window/logMessage notifications. Entries are queued and sent from a
// separate goroutine; a full queue drops entries.
type LSPWriter struct {
	srv   *jrpc2.Server
	queue chan LogMessageParams
	done  chan struct{}

	mu     sync.RWMutex
	closed bool
}

func NewLSPWriter(srv *jrpc2.Server) *LSPWriter {
	w := &LSPWriter{
		srv:   srv,
		queue: make(chan LogMessageParams, 256),
		done:  make(chan struct{}),
	}
	go w.forward()
	return w
}

func (w *LSPWriter) forward() {
	defer close(w.done)
	for params := range w.queue {
		_ = w.srv.Notify(context.Background(), "window/logMessage", params)
	}
}

func (w *LSPWriter) Write(p []byte) (int, error) {
	var entry map[string]any
	if err := json.Unmarshal(p, &entry); err != nil {
		return len(p), nil
	}

	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return len(p), nil
	}
	select {
	case w.queue <- FormatLogEntry(entry):
	default:
	}
	return len(p), nil
}

// Close stops forwarding once the queued entries are sent.
func (w *LSPWriter) Close() error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.mu.Unlock()
	<-w.done
	return nil
}

// FormatLogEntry flattens a decoded zerolog entry into a single message line.
func FormatLogEntry(entry map[string]any) LogMessageParams {
	level, _ := entry[zerolog.LevelFieldName].(string)
	msg, _ := entry[zerolog.MessageFieldName].(string)

	var extra []string
	for k, v := range entry {
		switch k {
		case zerolog.LevelFieldName, zerolog.MessageFieldName, "time", "server":
			continue
		}
		extra = append(extra, fmt.Sprintf("%s=%v", k, v))
	}
	sort.Strings(extra)

	if len(extra) > 0 {
		msg = msg + " " + strings.Join(extra, " ")
	}
	return LogMessageParams{
		Type:    MessageTypeFromLevel(level),
		Message: msg,
	}
}

// ApplyLSPWriter returns ctx carrying a logger that writes to w.
func ApplyLSPWriter(ctx context.Context, w *LSPWriter, id string, level zerolog.Level) context.Context {
	return debug.NewLogger(w, debug.Options{Level: level}).
		With().Str("server", id).Logger().
		WithContext(ctx)
}

// RPCLogger traces every request and response at trace level.
type RPCLogger struct{}

func (RPCLogger) LogRequest(ctx context.Context, req *jrpc2.Request) {
	zerolog.Ctx(ctx).Trace().
		Str("rpc_method", req.Method()).
		Str("rpc_id", req.ID()).
		Str("rpc_params", req.ParamString()).
		Msg("client request")
}

func (RPCLogger) LogResponse(ctx context.Context, rsp *jrpc2.Response) {
	zerolog.Ctx(ctx).Trace().
		Str("rpc_id", rsp.ID()).
		Str("rpc_result", rsp.ResultString()).
		Msg("server response")
}

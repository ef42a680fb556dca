package web

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/patchplaza/patchwork-cli/internal/chat"
)

// maxPortRetries is the number of consecutive ports to try on conflict.
const maxPortRetries = 10

// Server is the embedded console HTTP server.
type Server struct {
	hub     *EventHub
	state   *chat.State
	httpSrv *http.Server
}

// New creates a console server. The hub carries live session events; the
// state is read for /state snapshots.
func New(hub *EventHub, state *chat.State, listen string) *Server {
	s := &Server{hub: hub, state: state}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /events", s.handleSSE)
	mux.HandleFunc("GET /state", s.handleState)
	mux.Handle("GET /metrics", promhttp.Handler())

	s.httpSrv = &http.Server{Addr: listen, Handler: mux}
	return s
}

// Start begins listening. Non-blocking. If the port is taken, consecutive
// ports are tried unless pinned is true (user chose the port explicitly).
// Returns the actual port.
func (s *Server) Start(pinned bool) (int, error) {
	host, portStr, err := net.SplitHostPort(s.httpSrv.Addr)
	if err != nil {
		return 0, fmt.Errorf("web console address %q: %w", s.httpSrv.Addr, err)
	}
	port, _ := strconv.Atoi(portStr)

	tries := maxPortRetries
	if pinned {
		tries = 1
	}
	for i := 0; i < tries; i++ {
		tryAddr := net.JoinHostPort(host, strconv.Itoa(port+i))
		ln, err := net.Listen("tcp", tryAddr)
		if err != nil {
			continue
		}
		s.httpSrv.Addr = tryAddr
		go func() {
			if err := s.httpSrv.Serve(ln); err != http.ErrServerClosed {
				slog.Error("web console error", "error", err)
			}
		}()
		return port + i, nil
	}
	if pinned {
		return 0, fmt.Errorf("web console port %d is in use", port)
	}
	return 0, fmt.Errorf("web console: no available port in range %d-%d", port, port+maxPortRetries-1)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, indexHTML)
}

func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher.Flush()

	events, unsubscribe := s.hub.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-r.Context().Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			data, _ := json.Marshal(e)
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"session_id":   s.state.SessionID,
		"repo":         s.state.Repo,
		"turns":        s.state.Turns,
		"tool_calls":   s.state.ToolCalls,
		"tool_errors":  s.state.ToolErrors,
		"corrections":  s.state.Corrections,
		"guard_blocks": s.state.GuardBlocks,
		"started_at":   s.state.StartedAt,
	})
}

const indexHTML = `<!doctype html>
<html>
<head><meta charset="utf-8"><title>patchwork console</title>
<style>
body { font: 13px/1.5 monospace; background: #111; color: #ddd; margin: 2em; }
h1 { font-size: 15px; }
#log div { padding: 2px 0; border-bottom: 1px solid #222; }
.type { color: #7ab; margin-right: 1em; }
</style></head>
<body>
<h1>patchwork console</h1>
<p><a href="/state" style="color:#7ab">state</a> &middot; <a href="/metrics" style="color:#7ab">metrics</a></p>
<div id="log"></div>
<script>
const log = document.getElementById('log');
const es = new EventSource('/events');
es.onmessage = (m) => {
  const e = JSON.parse(m.data);
  const div = document.createElement('div');
  div.innerHTML = '<span class="type">' + e.type + '</span>' +
    e.message.replace(/&/g,'&amp;').replace(/</g,'&lt;');
  log.prepend(div);
  while (log.childElementCount > 500) log.lastChild.remove();
};
</script>
</body>
</html>`

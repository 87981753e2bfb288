package viewer

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter serves the viewer page, the event socket and the retained
// history as JSON.
func NewRouter(hub *Hub) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(indexHTML))
	})
	r.Get("/ws", hub.ServeWS)
	r.Get("/api/history", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(hub.History())
	})
	return r
}

const indexHTML = `<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>Voice Order Viewer</title>
<style>
body { font-family: sans-serif; margin: 2rem; background: #fafafa; }
.event { background: #fff; border-left: 4px solid #888; margin: .5rem 0; padding: .5rem 1rem; }
.event.order { border-color: #2a7; }
.event.transcript { border-color: #27a; }
.meta { color: #666; font-size: .8rem; }
pre { white-space: pre-wrap; margin: .25rem 0 0; }
</style>
</head>
<body>
<h1>Voice Order Viewer</h1>
<div id="status" class="meta">connecting...</div>
<div id="events"></div>
<script>
const events = document.getElementById("events");
const status = document.getElementById("status");
const ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/ws");
ws.onopen = () => status.textContent = "connected";
ws.onclose = () => status.textContent = "disconnected";
ws.onmessage = (msg) => {
  const ev = JSON.parse(msg.data);
  const div = document.createElement("div");
  div.className = "event " + (ev.eventType.endsWith("extracted") ? "order" : "transcript");
  const meta = document.createElement("div");
  meta.className = "meta";
  meta.textContent = ev.receivedAt + " " + ev.eventType + " session " + ev.sessionId;
  const body = document.createElement("pre");
  body.textContent = ev.payload.rendered || ev.summary;
  div.append(meta, body);
  events.prepend(div);
};
</script>
</body>
</html>
`

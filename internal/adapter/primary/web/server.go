package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"perfect-volume-control/internal/domain"
	"perfect-volume-control/internal/logging"
	"perfect-volume-control/internal/usecase"
)

// Simulator is implemented by platforms that can fake hardware and
// lifecycle events. Only the sim platform provides it.
type Simulator interface {
	PressVolumeButton(delta float64) float64
	EnterForeground()
}

// Server is a primary adapter that exposes HTTP API + UI.
// It depends on the use case (primary port).
type Server struct {
	bridge usecase.VolumeBridge
	sim    Simulator
	mux    *http.ServeMux
	server *http.Server
}

// Option customizes a Server.
type Option func(*Server)

// WithSimulator enables the simulation endpoints.
func WithSimulator(sim Simulator) Option {
	return func(s *Server) { s.sim = sim }
}

// WithChannel mounts the method channel handler at path.
func WithChannel(path string, h http.Handler) Option {
	return func(s *Server) { s.mux.Handle(path, h) }
}

// NewServer creates the HTTP server bound to addr.
func NewServer(bridge usecase.VolumeBridge, addr string, opts ...Option) *Server {
	mux := http.NewServeMux()
	srv := &Server{bridge: bridge, mux: mux}
	mux.HandleFunc("/api/volume", srv.handleVolume)
	mux.HandleFunc("/api/ui", srv.handleUI)
	mux.HandleFunc("/api/lifecycle/foreground", srv.handleForeground)
	mux.HandleFunc("/api/sim/buttons", srv.handleButtons)
	mux.HandleFunc("/", srv.handleRoot)

	srv.server = &http.Server{
		Addr:              addr,
		Handler:           loggingMiddleware(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(srv)
	}
	return srv
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start blocks and serves HTTP traffic.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html")
	w.Write([]byte(indexHTML))
}

func (s *Server) handleVolume(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		v, err := s.bridge.GetVolume(r.Context())
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, volumeView{Volume: v})
	case http.MethodPut:
		var req volumePayload
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid JSON", http.StatusBadRequest)
			return
		}
		if req.Volume == nil {
			http.Error(w, "volume is required", http.StatusBadRequest)
			return
		}
		if err := s.bridge.SetVolume(r.Context(), *req.Volume); err != nil {
			respondError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleUI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req uiPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Hide == nil {
		http.Error(w, "hide is required", http.StatusBadRequest)
		return
	}
	if err := s.bridge.HideUI(r.Context(), *req.Hide); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleForeground(w http.ResponseWriter, r *http.Request) {
	if s.sim == nil {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	s.sim.EnterForeground()
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleButtons(w http.ResponseWriter, r *http.Request) {
	if s.sim == nil {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req buttonPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	respondJSON(w, http.StatusOK, volumeView{Volume: s.sim.PressVolumeButton(req.Delta)})
}

type volumeView struct {
	Volume float64 `json:"volume"`
}

type volumePayload struct {
	Volume *float64 `json:"volume"`
}

type uiPayload struct {
	Hide *bool `json:"hide"`
}

type buttonPayload struct {
	Delta float64 `json:"delta"`
}

type errorView struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// respondError maps bridge errors onto HTTP status codes.
func respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrControlUnavailable):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrInvalidArguments):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrInactive), errors.Is(err, domain.ErrDisposed):
		status = http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	me := domain.ToMethodError(err)
	if me == nil {
		me = &domain.MethodError{Code: domain.CodeInternal, Message: err.Error()}
	}
	respondJSON(w, status, errorView{Code: me.Code, Message: me.Message, Details: me.Details})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.Warnf("encode JSON: %v", err)
	}
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logging.Debugf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

const indexHTML = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Perfect Volume Control</title>
    <style>
        body { font-family: sans-serif; max-width: 600px; margin: 50px auto; padding: 20px; }
        h1 { color: #333; }
        .info { background: #f0f0f0; padding: 15px; border-radius: 5px; margin: 20px 0; }
        button { background: #007bff; color: white; border: none; padding: 10px 20px; border-radius: 5px; cursor: pointer; }
        button:hover { background: #0056b3; }
        input[type=range] { width: 100%; }
    </style>
</head>
<body>
    <h1>Perfect Volume Control</h1>
    <div class="info" id="status">Loading...</div>
    <input type="range" id="volume" min="0" max="1" step="0.01" onchange="setVolume(this.value)">
    <div style="margin-top: 20px;">
        <button onclick="hideUI(true)">Hide HUD</button>
        <button onclick="hideUI(false)">Show HUD</button>
    </div>
    <div class="info" id="events"></div>
    <script>
        async function loadVolume() {
            const res = await fetch('/api/volume');
            const data = await res.json();
            if (!res.ok) {
                document.getElementById('status').textContent = 'Error: ' + data.message;
                return;
            }
            document.getElementById('volume').value = data.volume;
            document.getElementById('status').textContent = 'Volume: ' + data.volume.toFixed(3);
        }

        async function setVolume(v) {
            await fetch('/api/volume', {
                method: 'PUT',
                headers: {'Content-Type': 'application/json'},
                body: JSON.stringify({volume: parseFloat(v)})
            });
            await loadVolume();
        }

        async function hideUI(hide) {
            await fetch('/api/ui', {
                method: 'PUT',
                headers: {'Content-Type': 'application/json'},
                body: JSON.stringify({hide: hide})
            });
        }

        const proto = location.protocol === 'https:' ? 'wss://' : 'ws://';
        const ws = new WebSocket(proto + location.host + '/channels/perfect_volume_control');
        ws.onmessage = (msg) => {
            const env = JSON.parse(msg.data);
            if (env.type === 'call' && env.method === 'volumeChangeListener') {
                document.getElementById('events').textContent = 'Last event: ' + env.arguments;
                loadVolume();
            }
        };

        loadVolume();
    </script>
</body>
</html>`

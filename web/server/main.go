package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"race-replay/replay"
)

// serverConfig is read from the environment.
type serverConfig struct {
	Port       int    `env:"PORT" envDefault:"8080"`
	StaticDir  string `env:"STATIC_DIR" envDefault:"static"`
	DatasetDir string `env:"DATASET_DIR" envDefault:"datasets"`
	ResultsURL string `env:"RESULTS_URL"`
}

type WebServer struct {
	config    serverConfig
	engine    *replay.Engine
	upgrader  websocket.Upgrader
	clientsMu sync.Mutex
	clients   map[*websocket.Conn]bool
	broadcast chan interface{}
}

func NewWebServer(config serverConfig, engine *replay.Engine) *WebServer {
	ws := &WebServer{
		config: config,
		engine: engine,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins for development
			},
		},
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan interface{}, 8),
	}
	engine.SetPresenter(ws)
	return ws
}

// UpdateFrame implements replay.Presenter: frame statistics are queued
// for broadcast; a full channel drops the frame rather than blocking the
// render loop.
func (ws *WebServer) UpdateFrame(stats replay.FrameStats) {
	select {
	case ws.broadcast <- map[string]interface{}{"type": "frame", "data": stats}:
	default:
		// Channel full, skip this update
	}
}

// PlaybackFinished implements replay.Presenter. The send must not block
// behind a stalled client write; a viewer that misses the message still
// sees completion on the next status poll.
func (ws *WebServer) PlaybackFinished(stats replay.FrameStats) {
	select {
	case ws.broadcast <- map[string]interface{}{"type": "finished", "data": stats}:
	default:
	}
}

func (ws *WebServer) broadcastToClients() {
	for message := range ws.broadcast {
		ws.clientsMu.Lock()
		for client := range ws.clients {
			if err := client.WriteJSON(message); err != nil {
				log.Printf("WebSocket write error: %v", err)
				client.Close()
				delete(ws.clients, client)
			}
		}
		ws.clientsMu.Unlock()
	}
}

func (ws *WebServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := ws.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ws.clientsMu.Lock()
	ws.clients[conn] = true
	total := len(ws.clients)
	ws.clientsMu.Unlock()
	log.Printf("Client connected. Total clients: %d", total)

	// Send the session snapshot immediately so a late viewer can draw.
	init := map[string]interface{}{
		"type": "init",
		"data": map[string]interface{}{
			"status":   ws.engine.Status(),
			"entities": ws.engine.Entities(),
			"layout":   ws.engine.Layout(),
		},
	}
	if err := conn.WriteJSON(init); err != nil {
		log.Printf("Error sending init snapshot: %v", err)
	}

	// Listen for messages from client
	for {
		var msg map[string]interface{}
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		// Viewers are read-only; control goes through the REST API.
	}

	ws.clientsMu.Lock()
	delete(ws.clients, conn)
	total = len(ws.clients)
	ws.clientsMu.Unlock()
	log.Printf("Client disconnected. Total clients: %d", total)
}

func (ws *WebServer) handleLoad(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Session   string `json:"session"`
		Synthetic bool   `json:"synthetic"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return
	}

	var store *replay.Store
	var err error
	switch {
	case request.Synthetic:
		store, err = replay.GenerateSyntheticStore(replay.DefaultSyntheticOptions())
	case request.Session != "":
		// Session names map to files inside the dataset directory; reject
		// anything that tries to escape it.
		name := filepath.Base(request.Session)
		if !strings.HasSuffix(name, ".json") {
			name += ".json"
		}
		store, err = replay.ReadDatasetFile(filepath.Join(ws.config.DatasetDir, name))
	default:
		http.Error(w, "Either session or synthetic must be given", http.StatusBadRequest)
		return
	}

	if err != nil {
		log.Printf("Failed to load session: %v", err)
		http.Error(w, fmt.Sprintf("Failed to load session: %v", err), http.StatusBadRequest)
		return
	}

	if err := ws.engine.LoadDataset(store); err != nil {
		http.Error(w, fmt.Sprintf("Failed to install dataset: %v", err), http.StatusBadRequest)
		return
	}
	if ws.config.ResultsURL != "" {
		ws.engine.LoadFinalResults(ws.config.ResultsURL)
	}
	if !ws.engine.Running() {
		if err := ws.engine.Start(); err != nil {
			http.Error(w, fmt.Sprintf("Failed to start playback loop: %v", err), http.StatusInternalServerError)
			return
		}
	}

	log.Printf("Loaded session %s (%d entities)", store.SessionKey, len(store.Entities()))
	ws.writeJSON(w, map[string]interface{}{
		"status":   "loaded",
		"session":  store.SessionKey,
		"entities": ws.engine.Entities(),
		"layout":   ws.engine.Layout(),
	})
}

func (ws *WebServer) handleSessions(w http.ResponseWriter, r *http.Request) {
	entries, err := os.ReadDir(ws.config.DatasetDir)
	if err != nil {
		// An empty library is not an error for the viewer.
		ws.writeJSON(w, map[string]interface{}{"sessions": []string{}})
		return
	}

	sessions := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		sessions = append(sessions, strings.TrimSuffix(entry.Name(), ".json"))
	}
	ws.writeJSON(w, map[string]interface{}{"sessions": sessions})
}

func (ws *WebServer) handlePlay(w http.ResponseWriter, r *http.Request) {
	if err := ws.engine.Play(); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	ws.writeJSON(w, map[string]string{"status": "playing"})
}

func (ws *WebServer) handlePause(w http.ResponseWriter, r *http.Request) {
	if err := ws.engine.Pause(); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	ws.writeJSON(w, map[string]string{"status": "paused"})
}

func (ws *WebServer) handleRewind(w http.ResponseWriter, r *http.Request) {
	if err := ws.engine.Rewind(); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	ws.writeJSON(w, map[string]string{"status": "rewound"})
}

func (ws *WebServer) handleSpeed(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Speed float64 `json:"speed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return
	}
	if err := ws.engine.SetSpeed(request.Speed); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ws.writeJSON(w, map[string]interface{}{"status": "updated", "speed": request.Speed})
}

func (ws *WebServer) handleSeek(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Percent float64 `json:"percent"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return
	}
	if err := ws.engine.SeekTo(request.Percent); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	ws.writeJSON(w, map[string]interface{}{"status": "seeked", "percent": request.Percent})
}

func (ws *WebServer) handleResize(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return
	}
	if err := ws.engine.Resize(request.Width, request.Height); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ws.writeJSON(w, map[string]interface{}{
		"status": "resized",
		"layout": ws.engine.Layout(),
	})
}

func (ws *WebServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	ws.writeJSON(w, ws.engine.Status())
}

func (ws *WebServer) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func main() {
	var config serverConfig
	if err := env.Parse(&config); err != nil {
		log.Fatalf("Failed to parse environment: %v", err)
	}

	engine, err := replay.NewEngine(replay.DefaultConfig())
	if err != nil {
		log.Fatalf("Failed to create playback engine: %v", err)
	}

	webServer := NewWebServer(config, engine)

	// Start the broadcast goroutine
	go webServer.broadcastToClients()

	// Create router
	r := mux.NewRouter()

	// API routes
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/sessions", webServer.handleSessions).Methods("GET")
	api.HandleFunc("/load", webServer.handleLoad).Methods("POST")
	api.HandleFunc("/play", webServer.handlePlay).Methods("POST")
	api.HandleFunc("/pause", webServer.handlePause).Methods("POST")
	api.HandleFunc("/rewind", webServer.handleRewind).Methods("POST")
	api.HandleFunc("/speed", webServer.handleSpeed).Methods("POST")
	api.HandleFunc("/seek", webServer.handleSeek).Methods("POST")
	api.HandleFunc("/resize", webServer.handleResize).Methods("POST")
	api.HandleFunc("/status", webServer.handleStatus).Methods("GET")
	api.HandleFunc("/ws", webServer.handleWebSocket)

	// Handle favicon.ico requests
	r.HandleFunc("/favicon.ico", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	// Serve static files
	r.PathPrefix("/").Handler(http.FileServer(http.Dir(config.StaticDir)))

	log.Printf("Starting Race Replay Web Server on port %d", config.Port)
	log.Printf("Open http://localhost:%d in your browser", config.Port)

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(config.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	log.Fatal(server.ListenAndServe())
}

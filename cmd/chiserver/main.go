// Command chiserver exposes the agent session core over HTTP: session
// creation and a streamed process_input endpoint relaying a session's
// SessionEvent stream as server-sent events.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/modelbridge/agentkit/pkg/agent"
	"github.com/modelbridge/agentkit/pkg/agent/execution"
	"github.com/modelbridge/agentkit/pkg/agent/profiles"
	"github.com/modelbridge/agentkit/pkg/llm"
	"github.com/modelbridge/agentkit/pkg/llm/telemetry"
)

var (
	client           *llm.Client
	sessionTelemetry *telemetry.Settings

	sessionsMu sync.Mutex
	sessions   = map[string]*agent.Session{}
)

func main() {
	ctx := context.Background()
	telemetrySettings := telemetry.DefaultSettings()
	if endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); endpoint != "" {
		exporter, err := telemetry.InitExporter(ctx, telemetry.ExporterConfig{
			Endpoint:    endpoint,
			ServiceName: "agentkit-chiserver",
			Insecure:    os.Getenv("OTEL_EXPORTER_OTLP_INSECURE") == "true",
		})
		if err != nil {
			log.Fatal(err)
		}
		defer exporter.Shutdown(context.Background())
		telemetrySettings = telemetrySettings.WithEnabled(true)
	}
	sessionTelemetry = telemetrySettings

	var err error
	client, err = llm.ClientFromEnv(llm.EnvConfig{Timeout: 120 * time.Second, Telemetry: telemetrySettings})
	if err != nil {
		log.Fatal(err)
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST"},
	}))

	r.Get("/", handleRoot)
	r.Post("/sessions", handleCreateSession)
	r.Post("/sessions/{id}/input", handleProcessInput)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	fmt.Printf("agentkit chi server on :%s\n", port)
	log.Fatal(http.ListenAndServe(":"+port, r))
}

func handleRoot(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(map[string]string{
		"service": "agentkit chi server",
		"version": "1.0.0",
	})
}

type createSessionRequest struct {
	Provider   string `json:"provider"`
	Model      string `json:"model"`
	WorkingDir string `json:"working_dir"`
}

func handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err.Error() != "EOF" {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.WorkingDir == "" {
		req.WorkingDir = "."
	}

	profile := resolveProfile(req.Provider, req.Model)
	env, err := execution.NewLocal(req.WorkingDir)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	session := agent.NewSession(profile, env, client, agent.DefaultConfig())
	session.Telemetry = sessionTelemetry

	sessionsMu.Lock()
	sessions[session.ID] = session
	sessionsMu.Unlock()

	json.NewEncoder(w).Encode(map[string]string{"session_id": session.ID})
}

func resolveProfile(provider, model string) *agent.Profile {
	switch provider {
	case "anthropic":
		return profiles.NewAnthropic(model)
	case "gemini":
		return profiles.NewGemini(model)
	default:
		return profiles.NewOpenAI(model)
	}
}

type processInputRequest struct {
	Input string `json:"input"`
}

// handleProcessInput runs one process_input call for the named session,
// streaming its SessionEvent feed as SSE while the round loop runs in the
// background.
func handleProcessInput(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sessionsMu.Lock()
	session, ok := sessions[id]
	sessionsMu.Unlock()
	if !ok {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}

	var req processInputRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	events := make(chan agent.SessionEvent, 64)
	session.Events.Subscribe(func(e agent.SessionEvent) { events <- e })

	done := make(chan error, 1)
	go func() { done <- session.ProcessInput(r.Context(), req.Input) }()

	for {
		select {
		case event := <-events:
			data, _ := json.Marshal(event)
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Kind, data)
			flusher.Flush()
		case err := <-done:
			if err != nil {
				fmt.Fprintf(w, "event: error\ndata: %s\n\n", err.Error())
				flusher.Flush()
			}
			drainPending(events, w, flusher)
			return
		}
	}
}

func drainPending(events chan agent.SessionEvent, w http.ResponseWriter, flusher http.Flusher) {
	for {
		select {
		case event := <-events:
			data, _ := json.Marshal(event)
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Kind, data)
			flusher.Flush()
		default:
			return
		}
	}
}

// Command ginserver exposes a stateless one-shot generate endpoint over
// pkg/llm's high-level Generate/StreamGenerate helpers.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/modelbridge/agentkit/pkg/llm"
	"github.com/modelbridge/agentkit/pkg/llm/telemetry"
)

var client *llm.Client

type generateRequest struct {
	Prompt      string   `json:"prompt" binding:"required"`
	System      string   `json:"system"`
	Provider    string   `json:"provider"`
	Model       string   `json:"model" binding:"required"`
	MaxTokens   *int     `json:"max_tokens"`
	Temperature *float64 `json:"temperature"`
}

type generateResponse struct {
	Text  string    `json:"text"`
	Usage llm.Usage `json:"usage"`
}

type streamRequest struct {
	Prompt   string `json:"prompt" binding:"required"`
	System   string `json:"system"`
	Provider string `json:"provider"`
	Model    string `json:"model" binding:"required"`
}

func main() {
	ctx := context.Background()
	telemetrySettings := telemetry.DefaultSettings()
	if endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); endpoint != "" {
		exporter, err := telemetry.InitExporter(ctx, telemetry.ExporterConfig{
			Endpoint:    endpoint,
			ServiceName: "agentkit-ginserver",
			Insecure:    os.Getenv("OTEL_EXPORTER_OTLP_INSECURE") == "true",
		})
		if err != nil {
			log.Fatal(err)
		}
		defer exporter.Shutdown(context.Background())
		telemetrySettings = telemetrySettings.WithEnabled(true)
	}

	var err error
	client, err = llm.ClientFromEnv(llm.EnvConfig{Timeout: 60 * time.Second, Telemetry: telemetrySettings})
	if err != nil {
		log.Fatal(err)
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.Default()
	r.Use(corsMiddleware())

	r.GET("/", handleRoot)
	r.GET("/health", handleHealth)
	r.POST("/generate", handleGenerate)
	r.POST("/stream", handleStream)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("agentkit gin server starting on port %s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatal(err)
	}
}

func handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "agentkit gin server",
		"version": "1.0.0",
		"endpoints": []gin.H{
			{"method": "POST", "path": "/generate", "description": "One-shot completion"},
			{"method": "POST", "path": "/stream", "description": "Streaming (SSE)"},
			{"method": "GET", "path": "/health", "description": "Health check"},
		},
	})
}

func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now().Unix()})
}

func handleGenerate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 60*time.Second)
	defer cancel()

	result, err := llm.Generate(ctx, llm.GenerateOptions{
		Client:      client,
		Model:       req.Model,
		Provider:    req.Provider,
		Prompt:      req.Prompt,
		System:      req.System,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, generateResponse{
		Text:  result.Response().Text(),
		Usage: result.TotalUsage,
	})
}

func handleStream(c *gin.Context) {
	var req streamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	ctx, cancel := context.WithTimeout(c.Request.Context(), 120*time.Second)
	defer cancel()

	result, err := llm.StreamGenerate(ctx, llm.StreamOptions{
		Client:   client,
		Model:    req.Model,
		Provider: req.Provider,
		Prompt:   req.Prompt,
		System:   req.System,
	})
	if err != nil {
		sendSSE(c.Writer, "error", err.Error())
		return
	}
	defer result.Close()

	sendSSE(c.Writer, "start", "")
	c.Writer.Flush()

	for event := range result.Events() {
		if event.Type == llm.StreamEventTextDelta {
			sendSSE(c.Writer, "text", event.Delta)
			c.Writer.Flush()
		}
	}

	response, err := result.Response()
	if err != nil {
		sendSSE(c.Writer, "error", err.Error())
		c.Writer.Flush()
		return
	}
	sendSSE(c.Writer, "done", fmt.Sprintf(`{"totalTokens":%d}`, response.Usage.TotalTokens()))
	c.Writer.Flush()
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}

func sendSSE(w http.ResponseWriter, event, data string) {
	if event != "" {
		fmt.Fprintf(w, "event: %s\n", event)
	}
	if data != "" {
		fmt.Fprintf(w, "data: %s\n", data)
	}
	fmt.Fprintf(w, "\n")
}

package main

import (
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/Brownie44l1/captcha-api/internal/handlers"
	"github.com/Brownie44l1/captcha-api/internal/model"
	"github.com/getsentry/sentry-go"
)

func enableCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	// Get the project root directory
	execPath, err := os.Getwd()
	if err != nil {
		log.Fatalf("Failed to get working directory: %v", err)
	}

	// If running from cmd/server, go up two levels
	if filepath.Base(execPath) == "server" {
		execPath = filepath.Join(execPath, "../..")
	}

	modelPath := getenv("MODEL_PATH", filepath.Join(execPath, "models", "mathcode.onnx"))
	metadataPath := getenv("METADATA_PATH", filepath.Join(execPath, "models", "model_metadata.json"))

	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: dsn}); err != nil {
			log.Printf("Sentry disabled: %v", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	cfg, err := model.LoadConfig(metadataPath)
	if err != nil {
		log.Fatalf("Failed to load model config: %v", err)
	}

	log.Printf("Loading model from: %s", modelPath)

	engine, err := model.NewONNXEngine(modelPath, os.Getenv("ORT_LIB_PATH"), cfg.InputName, cfg.OutputName)
	if err != nil {
		log.Fatalf("Failed to initialize model: %v", err)
	}
	defer engine.Close()

	recognizer, err := model.NewRecognizer(cfg, engine)
	if err != nil {
		log.Fatalf("Model does not match configuration: %v", err)
	}

	handler := handlers.NewHandler(recognizer)

	mux := http.NewServeMux()
	mux.HandleFunc("/", handler.Home)
	mux.HandleFunc("/health", enableCORS(handler.Health))
	mux.HandleFunc("/recognize", enableCORS(handler.Recognize))
	mux.HandleFunc("/recognize/image", enableCORS(handler.RecognizeUpload))

	port := getenv("PORT", "8000")

	log.Printf("Server starting on port %s", port)
	log.Printf("Model loaded: %s (input %q, output %q)", modelPath, engine.InputName(), engine.OutputName())
	log.Printf("Config: %s", recognizer.Config())
	log.Println("Endpoints:")
	log.Println("  GET  /                - Upload page")
	log.Println("  GET  /health          - Health check")
	log.Println("  POST /recognize       - Recognize base64 image {\"img\": ...}")
	log.Println("  POST /recognize/image - Recognize multipart upload")

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

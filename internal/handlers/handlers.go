package handlers

import (
	_ "embed"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/Brownie44l1/captcha-api/internal/model"
	"github.com/getsentry/sentry-go"
)

//go:embed index.html
var indexHTML []byte

// maxBodyBytes bounds JSON and multipart request bodies.
const maxBodyBytes = 10 << 20

// Solver is the part of model.Recognizer the handlers use.
type Solver interface {
	Solve(payload string) (model.Result, error)
	SolveBytes(data []byte) (model.Result, error)
}

type Handler struct {
	solver Solver
}

// NewHandler wraps solver. A nil solver makes recognition endpoints answer
// 503 until the model is available.
func NewHandler(solver Solver) *Handler {
	return &Handler{
		solver: solver,
	}
}

func (h *Handler) ready() bool {
	return h.solver != nil
}

func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if !h.ready() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// Recognize handles POST {"img": "<base64>"}.
func (h *Handler) Recognize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}

	if !h.ready() {
		writeError(w, http.StatusServiceUnavailable, "Model not loaded, service not ready", nil)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read request body", nil)
		return
	}

	var req model.RecognizeRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON", nil)
		return
	}

	if req.Img == "" {
		writeError(w, http.StatusBadRequest, "Missing 'img' field in request body", nil)
		return
	}

	result, err := h.solver.Solve(req.Img)
	if err != nil {
		h.fail(w, err)
		return
	}

	writeJSON(w, http.StatusOK, model.RecognizeResponse{Text: result.Text, Value: result.Value})
}

// RecognizeUpload handles a multipart upload with the image in the "image" field.
func (h *Handler) RecognizeUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}

	if !h.ready() {
		writeError(w, http.StatusServiceUnavailable, "Model not loaded, service not ready", nil)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseMultipartForm(maxBodyBytes); err != nil {
		writeError(w, http.StatusBadRequest, "Failed to parse form", nil)
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No image file provided. Use 'image' as the form field name", nil)
		return
	}
	defer file.Close()

	log.Printf("Received file: %s, size: %d bytes", header.Filename, header.Size)

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read uploaded file", nil)
		return
	}

	result, err := h.solver.SolveBytes(data)
	if err != nil {
		h.fail(w, err)
		return
	}

	writeJSON(w, http.StatusOK, model.RecognizeResponse{Text: result.Text, Value: result.Value})
}

// fail answers a pipeline failure with 500 and the error kind.
func (h *Handler) fail(w http.ResponseWriter, err error) {
	log.Printf("Recognition error: %v", err)
	if !errors.Is(err, model.ErrDecode) {
		sentry.CaptureException(err)
	}
	writeError(w, http.StatusInternalServerError, err.Error(), err)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, err error) {
	resp := model.ErrorResponse{Error: msg}
	if err != nil {
		resp.Kind = model.KindOf(err)
	}
	writeJSON(w, status, resp)
}

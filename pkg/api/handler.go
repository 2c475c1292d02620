package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/hazyhaar/formsync/pkg/kit"
)

// NewRouter returns an http.Handler with all browse routes.
func NewRouter(b Browser, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()
	h := &handler{endpoints: newEndpoints(b, logger)}

	mux.HandleFunc("GET /v1/forms", h.handleSearchForms)
	mux.HandleFunc("GET /v1/forms/{formID}/responses", h.handleListResponses)
	mux.HandleFunc("GET /v1/forms/{formID}/fields/{fieldID}/values", h.handleValueFrequencies)
	mux.HandleFunc("GET /v1/responses/{responseID}", h.handleGetResponse)
	mux.HandleFunc("GET /v1/chiffres", h.handleListChiffres)
	mux.HandleFunc("GET /v1/search", h.handleSearchRecords)
	mux.HandleFunc("GET /v1/imports", h.handleListImports)
	mux.HandleFunc("GET /v1/health", h.handleHealth)

	return cors(mux)
}

type handler struct {
	endpoints
}

// --- forms ---

func (h *handler) handleSearchForms(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.searchForms, &searchReq{
		Query: r.URL.Query().Get("q"),
		Limit: queryInt(r, "limit"),
	})
}

func (h *handler) handleListResponses(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.listResponses, &formReq{FormID: r.PathValue("formID")})
}

func (h *handler) handleValueFrequencies(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.valueFrequencies, &valuesReq{
		FormID:            r.PathValue("formID"),
		FieldID:           r.PathValue("fieldID"),
		ExcludeResponseID: r.URL.Query().Get("exclude"),
	})
}

// --- responses ---

func (h *handler) handleGetResponse(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.getResponse, &responseReq{ResponseID: r.PathValue("responseID")})
}

func (h *handler) handleListChiffres(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.listChiffres, nil)
}

func (h *handler) handleSearchRecords(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.searchRecords, &searchReq{
		Query: r.URL.Query().Get("q"),
		Limit: queryInt(r, "limit"),
	})
}

func (h *handler) handleListImports(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.listImports, nil)
}

// --- health ---

type healthResponse struct {
	Status string `json:"status"`
	Forms  int    `json:"forms"`
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp, err := h.listImports(r.Context(), nil)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status: "ok",
		Forms:  len(resp.(importsResponse).Imports),
	})
}

// --- helpers ---

func (h *handler) serve(w http.ResponseWriter, r *http.Request, ep kit.Endpoint, req any) {
	id := r.Header.Get("X-Request-Id")
	if id == "" {
		id = uuid.NewString()
	}
	w.Header().Set("X-Request-Id", id)
	resp, err := ep(kit.WithRequestID(r.Context(), id), req)
	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, errBadRequest) {
			code = http.StatusBadRequest
		}
		writeError(w, code, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func queryInt(r *http.Request, key string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(key))
	return n
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// cors is a simple CORS middleware for browser-based clients.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-Id")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

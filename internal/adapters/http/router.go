package httpadapter

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/lendstack/docpack/internal/core/domain"
	"github.com/lendstack/docpack/internal/core/ports"
	"github.com/lendstack/docpack/internal/core/usecase"
	"github.com/lendstack/docpack/internal/infrastructure/rules"
	"github.com/lendstack/docpack/internal/observability/metrics"
)

const maxUploadBytes = 256 << 20

type Router struct {
	hierarchy ports.HierarchyService
	uploads   ports.UploadService
	snapshots ports.SnapshotService
	validator *usecase.ValidationEngine
	ruleSet   rules.RuleSet
	report    ports.ReportBuilder

	serverMetrics  *metrics.HTTPServerMetrics
	rateLimitRPS   float64
	rateLimitBurst int
	maxInFlight    int
	queueWait      time.Duration
}

type Options struct {
	Hierarchy ports.HierarchyService
	Uploads   ports.UploadService
	Snapshots ports.SnapshotService
	Validator *usecase.ValidationEngine
	RuleSet   rules.RuleSet
	Report    ports.ReportBuilder

	ServerMetrics  *metrics.HTTPServerMetrics
	RateLimitRPS   float64
	RateLimitBurst int
	MaxInFlight    int
	QueueWait      time.Duration
}

func NewRouter(opts Options) *Router {
	return &Router{
		hierarchy:      opts.Hierarchy,
		uploads:        opts.Uploads,
		snapshots:      opts.Snapshots,
		validator:      opts.Validator,
		ruleSet:        opts.RuleSet,
		report:         opts.Report,
		serverMetrics:  opts.ServerMetrics,
		rateLimitRPS:   opts.RateLimitRPS,
		rateLimitBurst: opts.RateLimitBurst,
		maxInFlight:    opts.MaxInFlight,
		queueWait:      opts.QueueWait,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("POST /v1/categories", rt.createCategory)
	mux.HandleFunc("POST /v1/categories/{id}/products", rt.createProduct)
	mux.HandleFunc("GET /v1/packages/current", rt.currentPackage)
	mux.HandleFunc("POST /v1/uploads", rt.uploadFile)
	mux.HandleFunc("GET /v1/uploads/{id}", rt.uploadStatus)
	mux.HandleFunc("POST /v1/uploads/{id}/retry", rt.retryUpload)
	mux.HandleFunc("POST /v1/documents/{id}/reclassify", rt.reclassifyDocument)
	mux.HandleFunc("DELETE /v1/documents/{id}/attachment", rt.detachDocument)
	mux.HandleFunc("GET /v1/products/{id}/completion", rt.productCompletion)
	mux.HandleFunc("POST /v1/snapshots", rt.saveSnapshot)
	mux.HandleFunc("GET /v1/reports/completion.xlsx", rt.completionReport)
	if rt.serverMetrics != nil {
		mux.Handle("GET /metrics", rt.serverMetrics.Handler())
	}

	var handler http.Handler = mux
	if rt.serverMetrics != nil {
		handler = rt.serverMetrics.Middleware("api", handler)
	}
	handler = backpressureMiddleware(handler, rt.maxInFlight, rt.queueWait)
	handler = rateLimitMiddleware(handler, rt.rateLimitRPS, rt.rateLimitBurst)
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) createCategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type        string `json:"type"`
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid json", Kind: "validation"})
		return
	}

	cat, err := rt.hierarchy.CreateCategory(r.Context(), domain.CategoryType(req.Type), req.Name, req.Description)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, cat)
}

func (rt *Router) createProduct(w http.ResponseWriter, r *http.Request) {
	categoryID := r.PathValue("id")
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Programs    []struct {
			Code string `json:"code"`
			Name string `json:"name"`
		} `json:"programs"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid json", Kind: "validation"})
		return
	}

	programs := make([]domain.Program, 0, len(req.Programs))
	for _, p := range req.Programs {
		programs = append(programs, domain.Program{Code: p.Code, Name: p.Name})
	}

	prod, err := rt.hierarchy.CreateProduct(r.Context(), categoryID, req.Name, req.Description, programs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, prod)
}

func (rt *Router) currentPackage(w http.ResponseWriter, _ *http.Request) {
	pkg := rt.hierarchy.CurrentPackage()
	if pkg == nil {
		writeJSON(w, http.StatusOK, map[string]any{"categories": []any{}})
		return
	}
	writeJSON(w, http.StatusOK, pkg)
}

// uploadFile is the drop entry point: validate, match a slot, then queue the
// chunked transfer. The response carries the session for progress polling.
func (rt *Router) uploadFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "multipart field 'file' is required", Kind: "validation"})
		return
	}
	defer file.Close()

	categoryID := r.FormValue("category_id")
	productID := r.FormValue("product_id")
	declared := domain.DocumentType(r.FormValue("document_type"))
	programID := r.FormValue("program_id")
	if productID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "product_id is required", Kind: "validation"})
		return
	}

	product := rt.findProduct(productID)
	if product == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "unknown product " + productID, Kind: "not_found"})
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "read upload: " + err.Error(), Kind: "validation"})
		return
	}

	meta := domain.FileMeta{
		Name:     fileHeader.Filename,
		Size:     int64(len(data)),
		MimeType: fileHeader.Header.Get("Content-Type"),
	}

	// Validation runs before any slot is considered; a rejected file never
	// reaches the matcher.
	docType := usecase.ClassifyDocument(meta.Name, declared)
	rule := rt.ruleSet.ForType(docType)
	if violations := rt.validator.ValidateContent(meta, rule, data); len(violations) > 0 {
		writeJSON(w, http.StatusBadRequest, validationBody{
			Error:      usecase.First(violations).Message,
			Kind:       "validation",
			Violations: violations,
		})
		return
	}

	match := usecase.MatchSlot(meta.Name, declared, programID, product.UnfulfilledSlots())

	uploadCtx := domain.UploadContext{
		CategoryID:   categoryID,
		ProductID:    productID,
		DocumentType: match.Type,
	}
	if match.Slot != nil {
		uploadCtx.SlotID = match.Slot.ID
	}

	sess, err := rt.uploads.Enqueue(r.Context(), meta, data, uploadCtx)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, sess)
}

func (rt *Router) uploadStatus(w http.ResponseWriter, r *http.Request) {
	sess, err := rt.uploads.Session(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (rt *Router) retryUpload(w http.ResponseWriter, r *http.Request) {
	sess, err := rt.uploads.Retry(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, sess)
}

func (rt *Router) reclassifyDocument(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type string `json:"document_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid json", Kind: "validation"})
		return
	}

	if err := rt.hierarchy.Reclassify(r.Context(), r.PathValue("id"), domain.DocumentType(req.Type)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) detachDocument(w http.ResponseWriter, r *http.Request) {
	if err := rt.hierarchy.DetachUpload(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) productCompletion(w http.ResponseWriter, r *http.Request) {
	status, err := rt.hierarchy.Completion(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (rt *Router) saveSnapshot(w http.ResponseWriter, r *http.Request) {
	versionID, err := rt.snapshots.SaveVersion(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"version_id": versionID})
}

func (rt *Router) completionReport(w http.ResponseWriter, _ *http.Request) {
	pkg := rt.hierarchy.CurrentPackage()
	categories := []*domain.Category{}
	completions := map[string]domain.CompletionStatus{}
	if pkg != nil {
		categories = pkg.Categories
		for _, cat := range pkg.Categories {
			for _, prod := range cat.Products {
				if status, err := rt.hierarchy.Completion(prod.ID); err == nil {
					completions[prod.ID] = status
				}
			}
		}
	}

	payload, err := rt.report.BuildCompletionReport(categories, completions)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="completion.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

func (rt *Router) findProduct(productID string) *domain.Product {
	pkg := rt.hierarchy.CurrentPackage()
	if pkg == nil {
		return nil
	}
	for _, cat := range pkg.Categories {
		for _, prod := range cat.Products {
			if prod.ID == productID {
				return prod
			}
		}
	}
	return nil
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

type validationBody struct {
	Error      string                   `json:"error"`
	Kind       string                   `json:"kind"`
	Violations []domain.ValidationError `json:"violations"`
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), errorBody{Error: err.Error(), Kind: errorKind(err)})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

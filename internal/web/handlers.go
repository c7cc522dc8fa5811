package web

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/prodsync/internal/core"
	mw "github.com/JonMunkholm/prodsync/internal/web/middleware"
	"github.com/JonMunkholm/prodsync/internal/web/templates"
)

// multipartMemory is how much of an upload is buffered in memory before
// the rest spills to a temporary file.
const multipartMemory = 8 << 20

// ImportResponse is the JSON result of an import run.
type ImportResponse struct {
	*core.ImportRun
	ReportURL      string `json:"report_url,omitempty"`
	ReportFileName string `json:"report_file_name,omitempty"`
	ReportBase64   string `json:"report_base64,omitempty"`
}

func newImportResponse(run *core.ImportRun, inline bool) ImportResponse {
	resp := ImportResponse{ImportRun: run}
	if run.Report != nil {
		resp.ReportURL = templates.ReportURL(run.ID)
		resp.ReportFileName = run.Report.FileName
		if inline {
			resp.ReportBase64 = run.Report.Base64()
		}
	}
	return resp
}

/* ----------------------------------------
	Pages
---------------------------------------- */

func (s *Server) handleUploadPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, templates.UploadPage(s.service.Runs()))
}

func (s *Server) handleImportPage(w http.ResponseWriter, r *http.Request) {
	run, err := s.runImport(w, r)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	s.render(w, r, http.StatusOK, templates.ResultPage(run))
}

// render buffers the page so a rendering failure can still produce an
// error status.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, page templ.Component) {
	var buf bytes.Buffer
	if err := page.Render(r.Context(), &buf); err != nil {
		respondError(w, r, fmt.Errorf("render page: %w", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

/* ----------------------------------------
	API
---------------------------------------- */

// handleImport runs an import and returns its result.
// Form fields: file (required), dry_run, inline_report.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	run, err := s.runImport(w, r)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	inline, _ := strconv.ParseBool(r.FormValue("inline_report"))
	writeJSON(w, http.StatusOK, newImportResponse(run, inline))
}

// runImport reads the multipart upload and hands it to the service.
func (s *Server) runImport(w http.ResponseWriter, r *http.Request) (*core.ImportRun, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Import.MaxFileSize)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return nil, fmt.Errorf("file too large: %w", err)
		}
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, core.ErrNoFile
		}
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidRequest, err)
	}
	defer r.MultipartForm.RemoveAll()

	dryRun, err := parseBoolField(r, "dry_run")
	if err != nil {
		return nil, err
	}

	file, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, core.ErrNoFile
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidRequest, err)
	}
	defer file.Close()

	return s.service.Import(r.Context(), core.ImportRequest{
		Actor:    mw.ActorFromContext(r.Context()),
		FileName: uploadName(header),
		DryRun:   dryRun,
	}, file)
}

func parseBoolField(r *http.Request, name string) (bool, error) {
	v := r.FormValue(name)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%w: %s must be true or false", core.ErrInvalidRequest, name)
	}
	return b, nil
}

// uploadName is the client's file name, or a default that selects the
// delimited text parser.
func uploadName(h *multipart.FileHeader) string {
	if h == nil || h.Filename == "" {
		return "upload.csv"
	}
	return h.Filename
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs := s.service.Runs()
	out := make([]ImportResponse, len(runs))
	for i, run := range runs {
		out[i] = newImportResponse(run, false)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.service.Run(chi.URLParam(r, "runID"))
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	inline, _ := strconv.ParseBool(r.URL.Query().Get("inline_report"))
	writeJSON(w, http.StatusOK, newImportResponse(run, inline))
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.service.Report(chi.URLParam(r, "runID"))
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeCSV(w, report.FileName, report.Content)
}

// handleExport downloads the catalog in the import layout.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	n, err := s.service.Export(r.Context(), &buf)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	w.Header().Set("X-Record-Count", strconv.Itoa(n))
	writeCSV(w, "products-"+time.Now().Format("2006-01-02")+".csv", buf.Bytes())
}

// handleStats reports how many products an export would contain.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.Stats(r.Context())
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleCodes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Codes())
}

// HealthResponse is the body of /healthz.
type HealthResponse struct {
	Status   string                   `json:"status"`
	Database string                   `json:"database,omitempty"`
	Imports  core.ImportLimiterStatus `json:"imports"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Imports: s.service.Limiter().Status()}
	status := http.StatusOK

	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.db.Ping(ctx); err != nil {
			resp.Status = "unavailable"
			resp.Database = "unreachable"
			status = http.StatusServiceUnavailable
		} else {
			resp.Database = "ok"
		}
	}
	writeJSON(w, status, resp)
}

func writeCSV(w http.ResponseWriter, fileName string, content []byte) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(content)))
	w.WriteHeader(http.StatusOK)
	w.Write(content)
}

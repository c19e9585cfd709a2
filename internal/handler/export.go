package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alex-user-go/bizfinder/internal/export"
	"github.com/alex-user-go/bizfinder/internal/middleware"
	"github.com/alex-user-go/bizfinder/internal/search/types"
)

// saveRequest is the POST /api/save body.
type saveRequest struct {
	Filename string `json:"filename"`
}

// SaveHandler handles POST /api/save: the most recent search results
// are written to a file under the configured save directory, as CSV or
// as an Excel workbook depending on the extension.
func (h *Handler) SaveHandler(w http.ResponseWriter, r *http.Request) {
	h.metrics.IncSaves()
	requestID := middleware.RequestID(r.Context())

	var req saveRequest
	if r.Body != nil {
		// An empty or absent body means "use the default filename".
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	records := h.store.Latest()
	if len(records) == 0 {
		writeError(w, http.StatusBadRequest, "no search results to save")
		return
	}

	filename, err := resolveFilename(req.Filename)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := os.MkdirAll(h.cfg.SaveDir, 0o755); err != nil {
		h.logger.Error("failed to create save directory", "request_id", requestID, "dir", h.cfg.SaveDir, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save results")
		return
	}

	path := filepath.Join(h.cfg.SaveDir, filename)
	if err := writeFile(path, records); err != nil {
		h.logger.Error("failed to save results", "request_id", requestID, "path", path, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save results")
		return
	}

	h.logger.Info("saved search results", "request_id", requestID, "path", path, "count", len(records))

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"message":  fmt.Sprintf("Successfully saved %d businesses to %s", len(records), filename),
		"filename": filename,
	})
}

// DownloadHandler handles GET /api/download/{filename}.
func (h *Handler) DownloadHandler(w http.ResponseWriter, r *http.Request) {
	filename := r.PathValue("filename")
	if filename == "" || filepath.Base(filename) != filename {
		writeError(w, http.StatusBadRequest, "invalid filename")
		return
	}

	path := filepath.Join(h.cfg.SaveDir, filename)
	if _, err := os.Stat(path); err != nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("the file %s does not exist", filename))
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	http.ServeFile(w, r, path)
}

// resolveFilename validates the requested filename, defaulting to a
// timestamped CSV name and refusing anything that could escape the
// save directory.
func resolveFilename(requested string) (string, error) {
	filename := strings.TrimSpace(requested)
	if filename == "" {
		filename = fmt.Sprintf("business_results_%s.csv", time.Now().Format("20060102_150405"))
	}
	if filepath.Base(filename) != filename {
		return "", fmt.Errorf("invalid filename")
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".xlsx":
	default:
		filename += ".csv"
	}
	return filename, nil
}

func writeFile(path string, records []types.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	var writeErr error
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		writeErr = export.WriteXLSX(f, records)
	} else {
		writeErr = export.WriteCSV(f, records)
	}

	if closeErr := f.Close(); writeErr == nil {
		writeErr = closeErr
	}
	return writeErr
}

package api

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/51st-Vfw/MissionEditing-Templates/internal/parser"
	"github.com/51st-Vfw/MissionEditing-Templates/internal/pipeline"
)

// buildRequest holds the form fields shared by single and batch builds.
type buildRequest struct {
	mode     string
	template string
	tinted   bool
	dryRun   bool
}

func parseBuildRequest(r *http.Request) (buildRequest, error) {
	req := buildRequest{
		mode:     r.FormValue("mode"),
		template: r.FormValue("template"),
	}
	switch req.mode {
	case "", pipeline.ModeTable:
		req.mode = pipeline.ModeTable
	case pipeline.ModeEdits:
		if req.template == "" {
			return req, fmt.Errorf("template is required in edits mode")
		}
	default:
		return req, fmt.Errorf("unknown mode %q", req.mode)
	}
	req.tinted, _ = strconv.ParseBool(r.FormValue("tinted"))
	req.dryRun, _ = strconv.ParseBool(r.FormValue("dry"))
	return req, nil
}

// newJob validates an uploaded definition and queues it.
func (s *Server) newJob(fh *multipart.FileHeader, req buildRequest) (*pipeline.Job, error) {
	filename := sanitizeFilename(fh.Filename)
	if req.mode == pipeline.ModeTable && !parser.IsSupportedExtension(filename) {
		return nil, fmt.Errorf("unsupported file type: %s", filepath.Ext(filename))
	}

	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open file")
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file")
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return nil, errTooLarge{limit: s.cfg.MaxUploadBytes}
	}

	job := pipeline.NewJob(filename, data, req.mode, pipeline.BuildOptions{
		KeepSVG:  s.cfg.KeepSVG,
		PNG:      s.cfg.PNG,
		Minify:   s.cfg.Minify,
		DryRun:   req.dryRun,
		Workers:  s.cfg.Workers,
		FailFast: s.cfg.FailFast,

		ConfineOutputs: true,
	})
	job.Options.OutputDir = filepath.Join(s.cfg.WorkDir, job.ID)
	job.Template = req.template
	job.Tinted = req.tinted
	return job, nil
}

type errTooLarge struct{ limit int64 }

func (e errTooLarge) Error() string {
	return fmt.Sprintf("file exceeds max size (%d bytes)", e.limit)
}

func (s *Server) handleBuild(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	req, err := parseBuildRequest(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	files := r.MultipartForm.File["file"]
	if len(files) == 0 {
		jsonError(w, "file is required", http.StatusBadRequest)
		return
	}

	job, err := s.newJob(files[0], req)
	if err != nil {
		code := http.StatusBadRequest
		if _, ok := err.(errTooLarge); ok {
			code = http.StatusRequestEntityTooLarge
		}
		jsonError(w, err.Error(), code)
		return
	}

	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"job_id":   job.ID,
		"status":   pipeline.StatusQueued,
		"poll_url": fmt.Sprintf("/api/builds/%s/status", job.ID),
	})
}

func (s *Server) handleBatchBuild(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes*10+10*1024*1024)

	if err := r.ParseMultipartForm(64 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	req, err := parseBuildRequest(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		jsonError(w, "at least one file is required", http.StatusBadRequest)
		return
	}

	var results []map[string]any
	for _, fh := range files {
		job, err := s.newJob(fh, req)
		if err == nil {
			err = s.orchestrator.Submit(job)
		}
		if err != nil {
			results = append(results, map[string]any{
				"filename": sanitizeFilename(fh.Filename),
				"error":    err.Error(),
			})
			continue
		}
		results = append(results, map[string]any{
			"filename": job.Filename,
			"job_id":   job.ID,
			"status":   pipeline.StatusQueued,
			"poll_url": fmt.Sprintf("/api/builds/%s/status", job.ID),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{"jobs": results})
}

func (s *Server) handleBuildStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	snap := job.Snapshot()

	outputs := []string{}
	for _, res := range snap.Results {
		for _, out := range res.Outputs {
			outputs = append(outputs, fmt.Sprintf("/api/builds/%s/outputs/%s", snap.ID, filepath.Base(out)))
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"job_id":   snap.ID,
		"filename": snap.Filename,
		"mode":     snap.Mode,
		"status":   snap.Status,
		"phase":    snap.Phase,
		"progress": snap.Progress,
		"results":  snap.Results,
		"outputs":  outputs,
	})
}

// handleBuildOutput serves one file produced by a job. Only files the job
// reported as outputs are served.
func (s *Server) handleBuildOutput(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	name := chi.URLParam(r, "name")
	for _, out := range job.Outputs() {
		if filepath.Base(out) != name {
			continue
		}
		switch strings.ToLower(filepath.Ext(out)) {
		case ".svg":
			w.Header().Set("Content-Type", "image/svg+xml")
		case ".png":
			w.Header().Set("Content-Type", "image/png")
		}
		http.ServeFile(w, r, out)
		return
	}
	jsonError(w, "output not found", http.StatusNotFound)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	// Remove any path separators that might have survived.
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}

// Package media stores uploaded playlist assets on disk and serves them
// to players under /uploads/.
package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/studiorstv10-png/studio-rs-tv/internal/server"
	"github.com/studiorstv10-png/studio-rs-tv/pkg/plugin"
)

// Compile-time interface guards.
var (
	_ plugin.Plugin       = (*Module)(nil)
	_ plugin.HTTPProvider = (*Module)(nil)
)

// allowedExtensions lists the file types players can render.
var allowedExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".mkv":  true,
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// maxUploadBytes caps a single upload at 512 MiB.
const maxUploadBytes = 512 << 20

// Config holds the media module settings.
type Config struct {
	UploadDir string `mapstructure:"upload_dir"`
}

// FileInfo describes one stored asset.
type FileInfo struct {
	Name       string    `json:"name"`
	URL        string    `json:"url"`
	SizeBytes  int64     `json:"size_bytes"`
	ModifiedAt time.Time `json:"modified_at"`
}

// Module implements the media storage plugin.
type Module struct {
	logger *zap.Logger
	cfg    Config
}

// New creates a new media plugin instance.
func New() *Module {
	return &Module{}
}

// Info returns the plugin metadata.
func (m *Module) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:        "media",
		Version:     "0.1.0",
		Description: "Uploaded asset storage and static serving",
		APIVersion:  plugin.APIVersionCurrent,
	}
}

// Init reads configuration and ensures the upload directory exists.
func (m *Module) Init(_ context.Context, deps plugin.Dependencies) error {
	m.logger = deps.Logger
	m.cfg = Config{UploadDir: "./data/uploads"}

	if deps.Config != nil {
		if err := deps.Config.Unmarshal(&m.cfg); err != nil {
			m.logger.Warn("failed to unmarshal media config, using defaults", zap.Error(err))
		}
	}
	if m.cfg.UploadDir == "" {
		m.cfg.UploadDir = "./data/uploads"
	}

	if err := os.MkdirAll(m.cfg.UploadDir, 0o755); err != nil {
		return fmt.Errorf("create upload dir %s: %w", m.cfg.UploadDir, err)
	}

	m.logger.Info("media module initialized", zap.String("upload_dir", m.cfg.UploadDir))
	return nil
}

// Start begins the module's operations. Serving is request-driven,
// so there is nothing to start.
func (m *Module) Start(_ context.Context) error {
	m.logger.Info("media module started")
	return nil
}

// Stop gracefully shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("media module stopped")
	return nil
}

// Routes implements plugin.HTTPProvider.
func (m *Module) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "GET", Path: "/files", Handler: m.handleList},
		{Method: "POST", Path: "/upload", Handler: m.handleUpload},
		{Method: "DELETE", Path: "/files/{name}", Handler: m.handleDelete},
	}
}

// RegisterRoutes mounts the static file tree at /uploads/ on the root mux,
// outside the versioned API so asset URLs stay short and cacheable.
func (m *Module) RegisterRoutes(mux *http.ServeMux) {
	fs := http.StripPrefix("/uploads/", http.FileServer(http.Dir(m.cfg.UploadDir)))
	mux.Handle("GET /uploads/", fs)
}

// handleList returns the stored assets sorted by name.
//
//	@Summary		List media files
//	@Tags			media
//	@Produce		json
//	@Security		AdminKey
//	@Success		200	{array}	FileInfo
//	@Router			/media/files [get]
func (m *Module) handleList(w http.ResponseWriter, r *http.Request) {
	entries, err := os.ReadDir(m.cfg.UploadDir)
	if err != nil {
		m.logger.Error("read upload dir failed", zap.Error(err))
		server.InternalError(w, "failed to list files", r.URL.Path)
		return
	}

	files := []FileInfo{}
	for _, entry := range entries {
		if entry.IsDir() || !allowedExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Name:       entry.Name(),
			URL:        "/uploads/" + entry.Name(),
			SizeBytes:  info.Size(),
			ModifiedAt: info.ModTime().UTC(),
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	writeJSON(w, http.StatusOK, files)
}

// handleUpload stores one multipart file upload.
//
//	@Summary		Upload media file
//	@Tags			media
//	@Accept			multipart/form-data
//	@Produce		json
//	@Security		AdminKey
//	@Param			file	formData	file	true	"Asset to store"
//	@Success		201		{object}	FileInfo
//	@Failure		400		{object}	server.Problem
//	@Router			/media/upload [post]
func (m *Module) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		server.BadRequest(w, "multipart field 'file' is required", r.URL.Path)
		return
	}
	defer file.Close()

	name, err := sanitizeName(header.Filename)
	if err != nil {
		server.BadRequest(w, err.Error(), r.URL.Path)
		return
	}

	dest := filepath.Join(m.cfg.UploadDir, name)
	out, err := os.Create(dest)
	if err != nil {
		m.logger.Error("create upload failed", zap.String("name", name), zap.Error(err))
		server.InternalError(w, "failed to store file", r.URL.Path)
		return
	}
	defer out.Close()

	size, err := io.Copy(out, file)
	if err != nil {
		os.Remove(dest)
		m.logger.Error("write upload failed", zap.String("name", name), zap.Error(err))
		server.InternalError(w, "failed to store file", r.URL.Path)
		return
	}

	m.logger.Info("media uploaded", zap.String("name", name), zap.Int64("size_bytes", size))
	writeJSON(w, http.StatusCreated, FileInfo{
		Name:       name,
		URL:        "/uploads/" + name,
		SizeBytes:  size,
		ModifiedAt: time.Now().UTC(),
	})
}

// handleDelete removes one stored asset.
//
//	@Summary		Delete media file
//	@Tags			media
//	@Security		AdminKey
//	@Param			name	path	string	true	"File name"
//	@Success		204
//	@Failure		404	{object}	server.Problem
//	@Router			/media/files/{name} [delete]
func (m *Module) handleDelete(w http.ResponseWriter, r *http.Request) {
	name, err := sanitizeName(r.PathValue("name"))
	if err != nil {
		server.BadRequest(w, err.Error(), r.URL.Path)
		return
	}

	err = os.Remove(filepath.Join(m.cfg.UploadDir, name))
	if errors.Is(err, os.ErrNotExist) {
		server.NotFound(w, "file not found", r.URL.Path)
		return
	}
	if err != nil {
		m.logger.Error("delete upload failed", zap.String("name", name), zap.Error(err))
		server.InternalError(w, "failed to delete file", r.URL.Path)
		return
	}
	m.logger.Info("media deleted", zap.String("name", name))
	w.WriteHeader(http.StatusNoContent)
}

// sanitizeName rejects traversal attempts and disallowed extensions,
// returning the bare file name.
func sanitizeName(raw string) (string, error) {
	name := filepath.Base(strings.TrimSpace(raw))
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, "/\\") {
		return "", errors.New("invalid file name")
	}
	if !allowedExtensions[strings.ToLower(filepath.Ext(name))] {
		return "", fmt.Errorf("file type %q not allowed", filepath.Ext(name))
	}
	return name, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Package httpapi serves scene import/export over plain HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"voxeledit.ai/internal/persistence/archive"
	"voxeledit.ai/internal/persistence/snapshot"
	"voxeledit.ai/internal/persistence/store"
)

const maxImportBytes = 64 << 20

type Options struct {
	// LoopbackWrites restricts PUT and DELETE to loopback clients.
	LoopbackWrites bool
	Timeout        time.Duration
	// ArchiveDir, when set, receives a backup of every scene before it is
	// deleted or overwritten by an import.
	ArchiveDir string
}

type Handler struct {
	store store.Store
	log   *zap.Logger
	opts  Options
}

func NewHandler(s store.Store, opts Options, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Handler{store: s, log: logger, opts: opts}
}

// Register mounts the scene routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /v1/scenes", h.list)
	mux.HandleFunc("GET /v1/scenes/{name}", h.export)
	mux.HandleFunc("PUT /v1/scenes/{name}", h.writeGuard(h.importScene))
	mux.HandleFunc("DELETE /v1/scenes/{name}", h.writeGuard(h.delete))
}

func (h *Handler) writeGuard(next http.HandlerFunc) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if h.opts.LoopbackWrites && !isLoopbackRemote(r.RemoteAddr) {
			writeError(rw, http.StatusForbidden, "forbidden")
			return
		}
		next(rw, r)
	}
}

func (h *Handler) ctx(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), h.opts.Timeout)
}

func (h *Handler) list(rw http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.ctx(r)
	defer cancel()
	names, err := h.store.List(ctx)
	if err != nil {
		h.fail(rw, "list", err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(rw, http.StatusOK, map[string]any{"scenes": names})
}

func (h *Handler) export(rw http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := store.ValidName(name); err != nil {
		writeError(rw, http.StatusBadRequest, err.Error())
		return
	}
	ctx, cancel := h.ctx(r)
	defer cancel()
	scene, err := h.store.Load(ctx, name)
	if err != nil {
		h.fail(rw, "export", err)
		return
	}
	rw.Header().Set("Content-Type", "application/json")
	if err := snapshot.ExportJSON(rw, scene); err != nil {
		h.log.Warn("export write failed", zap.String("scene", name), zap.Error(err))
	}
}

func (h *Handler) importScene(rw http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := store.ValidName(name); err != nil {
		writeError(rw, http.StatusBadRequest, err.Error())
		return
	}
	b, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes+1))
	if err != nil {
		writeError(rw, http.StatusBadRequest, err.Error())
		return
	}
	if len(b) > maxImportBytes {
		writeError(rw, http.StatusRequestEntityTooLarge, "scene too large")
		return
	}
	scene, err := snapshot.ImportJSON(b)
	if err != nil {
		writeError(rw, http.StatusBadRequest, err.Error())
		return
	}
	scene.Header.Name = name

	ctx, cancel := h.ctx(r)
	defer cancel()
	if err := h.backup(ctx, name); err != nil && !errors.Is(err, store.ErrNotFound) {
		h.fail(rw, "import", err)
		return
	}
	if err := h.store.Save(ctx, name, scene); err != nil {
		h.fail(rw, "import", err)
		return
	}
	h.log.Info("scene imported", zap.String("scene", name), zap.Int("nodes", len(scene.Nodes)))
	writeJSON(rw, http.StatusOK, map[string]any{"ok": true, "scene": name, "nodes": len(scene.Nodes)})
}

func (h *Handler) delete(rw http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := store.ValidName(name); err != nil {
		writeError(rw, http.StatusBadRequest, err.Error())
		return
	}
	ctx, cancel := h.ctx(r)
	defer cancel()
	if err := h.backup(ctx, name); err != nil {
		h.fail(rw, "delete", err)
		return
	}
	if err := h.store.Delete(ctx, name); err != nil {
		h.fail(rw, "delete", err)
		return
	}
	writeJSON(rw, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) backup(ctx context.Context, name string) error {
	if h.opts.ArchiveDir == "" {
		return nil
	}
	scene, err := h.store.Load(ctx, name)
	if err != nil {
		return err
	}
	scene.Header.Name = name
	path, err := archive.ArchiveScene(h.opts.ArchiveDir, scene, time.Now())
	if err != nil {
		return err
	}
	h.log.Info("scene archived", zap.String("scene", name), zap.String("path", path))
	return nil
}

func (h *Handler) fail(rw http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(rw, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrBadName):
		writeError(rw, http.StatusBadRequest, err.Error())
	default:
		h.log.Error("scene request failed", zap.String("op", op), zap.Error(err))
		writeError(rw, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}

func writeError(rw http.ResponseWriter, status int, msg string) {
	writeJSON(rw, status, map[string]any{"ok": false, "error": msg})
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

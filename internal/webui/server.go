package webui

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/robfig/cron/v3"

	"github.com/kayz/promptblocks/internal/autosave"
	"github.com/kayz/promptblocks/internal/block"
	"github.com/kayz/promptblocks/internal/compiler"
	"github.com/kayz/promptblocks/internal/logger"
	"github.com/kayz/promptblocks/internal/persist"
	"github.com/kayz/promptblocks/internal/program"
)

const maxBodyBytes = 1 << 20

// Store is the program storage the server reads and writes.
type Store interface {
	Get(id string) (*program.Program, error)
	List() ([]program.Program, error)
	Put(p program.Program) (program.Program, error)
	Delete(id string) error
}

// Options configures optional server behaviour.
type Options struct {
	// Recorder receives every compile served for a stored program. Nil
	// disables auditing.
	Recorder *compiler.Recorder
	// CleanupSchedule is the cron expression for audit retention cleanup.
	CleanupSchedule string
	// AutosaveDelay is the idle time before live edits are persisted.
	AutosaveDelay time.Duration
}

type Server struct {
	store     Store
	recorder  *compiler.Recorder
	schedule  string
	saver     *autosave.Debouncer
	cron      *cron.Cron
	upgrader  websocket.Upgrader
	startedAt time.Time
	now       func() time.Time
}

func NewServer(store Store, opts Options) *Server {
	s := &Server{
		store:     store,
		recorder:  opts.Recorder,
		schedule:  strings.TrimSpace(opts.CleanupSchedule),
		startedAt: time.Now().UTC(),
		now:       time.Now,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	s.saver = autosave.New(opts.AutosaveDelay, func(p program.Program) error {
		_, err := s.store.Put(p)
		return err
	})
	return s
}

// Start schedules background jobs.
func (s *Server) Start() error {
	if !s.recorder.Enabled() || s.schedule == "" {
		return nil
	}
	c := cron.New()
	if _, err := c.AddFunc(s.schedule, s.cleanupAudit); err != nil {
		return fmt.Errorf("invalid audit cleanup schedule %q: %w", s.schedule, err)
	}
	c.Start()
	s.cron = c
	logger.Info("[Web] Audit cleanup scheduled: %s", s.schedule)
	return nil
}

// Stop halts background jobs and saves pending live edits.
func (s *Server) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
		s.cron = nil
	}
	s.saver.Stop()
}

func (s *Server) cleanupAudit() {
	if err := s.recorder.CleanupOldAuditFiles(); err != nil {
		logger.Warn("[Web] Audit cleanup failed: %v", err)
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/library", s.handleLibrary)
	mux.HandleFunc("GET /api/programs", s.handleListPrograms)
	mux.HandleFunc("POST /api/programs", s.handleCreateProgram)
	mux.HandleFunc("GET /api/programs/{id}", s.handleGetProgram)
	mux.HandleFunc("PUT /api/programs/{id}", s.handleUpdateProgram)
	mux.HandleFunc("DELETE /api/programs/{id}", s.handleDeleteProgram)
	mux.HandleFunc("POST /api/programs/{id}/duplicate", s.handleDuplicateProgram)
	mux.HandleFunc("GET /api/programs/{id}/compile", s.handleCompileProgram)
	mux.HandleFunc("GET /api/programs/{id}/live", s.handleLive)
	mux.HandleFunc("POST /api/compile", s.handleCompile)
	return mux
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(defaultIndexHTML))
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":         true,
		"started_at": s.startedAt.Format(time.RFC3339),
		"uptime_sec": int(time.Since(s.startedAt).Seconds()),
	})
}

func (s *Server) handleLibrary(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, block.Library())
}

func (s *Server) handleListPrograms(w http.ResponseWriter, _ *http.Request) {
	programs, err := s.store.List()
	if err != nil {
		logger.Error("[Web] Failed to list programs: %v", err)
		programs = []program.Program{}
	}
	writeJSON(w, http.StatusOK, programs)
}

type createRequest struct {
	Name     string `json:"name"`
	Category string `json:"category"`
}

func (s *Server) handleCreateProgram(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decodeOptionalBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	saved, err := s.store.Put(program.New(req.Name, req.Category, s.now()))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	logger.Info("[Web] Created program %s (%s)", saved.ID, saved.Name)
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleGetProgram(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.Get(r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleUpdateProgram(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	current, err := s.store.Get(id)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	var p program.Program
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	p.ID = id
	p.CreatedAt = current.CreatedAt
	if strings.TrimSpace(p.Name) == "" {
		p.Name = current.Name
	}
	if strings.TrimSpace(p.Category) == "" {
		p.Category = current.Category
	}
	if err := program.Validate(p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	saved, err := s.store.Put(p)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleDeleteProgram(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.store.Delete(id); err != nil {
		writeStoreError(w, err)
		return
	}
	logger.Info("[Web] Deleted program %s", id)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleDuplicateProgram(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.Get(r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	saved, err := s.store.Put(program.Duplicate(*p, s.now()))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

type compileResponse struct {
	Prompt   string             `json:"prompt"`
	Sections []compiler.Section `json:"sections"`
	Stats    compiler.Stats     `json:"stats"`
}

func compileBlocks(blocks []block.Instance) compileResponse {
	sections := compiler.Sections(blocks)
	if sections == nil {
		sections = []compiler.Section{}
	}
	prompt := compiler.Render(sections)
	return compileResponse{Prompt: prompt, Sections: sections, Stats: compiler.Measure(prompt)}
}

func (s *Server) handleCompileProgram(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.Get(r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	resp := compileBlocks(p.Blocks)
	if s.recorder.Enabled() {
		if err := s.recorder.Record(p.ID, p.Blocks, resp.Prompt, resp.Sections); err != nil {
			logger.Warn("[Web] Failed to record compile audit for %s: %v", p.ID, err)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCompile(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	blocks, err := block.DecodeList(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, compileBlocks(blocks))
}

func decodeOptionalBody(r *http.Request, v any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, persist.ErrNotFound):
		writeError(w, http.StatusNotFound, "program not found")
	case errors.Is(err, program.ErrDuplicateID), errors.Is(err, program.ErrTypeMismatch):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		logger.Error("[Web] Storage error: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

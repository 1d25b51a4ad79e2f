package webui

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kayz/promptblocks/internal/block"
	"github.com/kayz/promptblocks/internal/compiler"
	"github.com/kayz/promptblocks/internal/logger"
	"github.com/kayz/promptblocks/internal/program"
)

const (
	liveReadTimeout  = 10 * time.Minute
	liveWriteTimeout = 10 * time.Second
)

// liveEdit is a client message on the live session. Name and Category are
// optional renames sent along with the block list.
type liveEdit struct {
	Blocks   json.RawMessage `json:"blocks"`
	Name     string          `json:"name,omitempty"`
	Category string          `json:"category,omitempty"`
}

type livePreview struct {
	Prompt string         `json:"prompt"`
	Stats  compiler.Stats `json:"stats"`
	Error  string         `json:"error,omitempty"`
}

// handleLive upgrades to a WebSocket where each edit is compiled right away
// and persisted through the autosave debouncer.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.Get(r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("[Web] WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()
	logger.Debug("[Web] Live session opened for program %s from %s", p.ID, r.RemoteAddr)

	current := *p
	if err := writePreview(conn, current.Blocks, ""); err != nil {
		return
	}

	for {
		conn.SetReadDeadline(time.Now().Add(liveReadTimeout))
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("[Web] Live session read error: %v", err)
			}
			break
		}

		var edit liveEdit
		if err := json.Unmarshal(message, &edit); err != nil {
			if writePreview(conn, current.Blocks, "invalid json message") != nil {
				break
			}
			continue
		}
		blocks, err := block.DecodeList(edit.Blocks)
		if err != nil {
			if writePreview(conn, current.Blocks, err.Error()) != nil {
				break
			}
			continue
		}

		next := program.Rename(current, edit.Name, edit.Category)
		next.Blocks = blocks
		if err := program.Validate(next); err != nil {
			if writePreview(conn, current.Blocks, err.Error()) != nil {
				break
			}
			continue
		}

		current = next
		s.saver.Trigger(current)
		if writePreview(conn, current.Blocks, "") != nil {
			break
		}
	}
	logger.Debug("[Web] Live session closed for program %s", p.ID)
}

func writePreview(conn *websocket.Conn, blocks []block.Instance, errMsg string) error {
	prompt := compiler.Compile(blocks)
	conn.SetWriteDeadline(time.Now().Add(liveWriteTimeout))
	return conn.WriteJSON(livePreview{Prompt: prompt, Stats: compiler.Measure(prompt), Error: errMsg})
}

package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/MeKo-Tech/qrscan/internal/detect"
	"github.com/MeKo-Tech/qrscan/internal/media"
	"github.com/MeKo-Tech/qrscan/internal/scan"
	"github.com/MeKo-Tech/qrscan/internal/utils"
)

const (
	wsReadTimeout  = 60 * time.Second
	wsPingInterval = 30 * time.Second
	wsWriteTimeout = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// StreamMessage is a server to client message on the scan stream.
type StreamMessage struct {
	Type      string            `json:"type"` // "status", "detection", "frame", "overlay"
	Session   string            `json:"session"`
	Message   string            `json:"message,omitempty"`
	Error     string            `json:"error,omitempty"`
	Frame     int               `json:"frame,omitempty"`
	Count     int               `json:"count,omitempty"`
	Detection *detect.Detection `json:"detection,omitempty"`
	Image     string            `json:"image,omitempty"`
}

// StreamCommand is a client to server control message.
type StreamCommand struct {
	Type string `json:"type"` // "reset", "clear", "overlay"
}

// WebSocketConnWriter is an interface for writing WebSocket messages.
type WebSocketConnWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// stream is one scan session bound to a connection. Binary messages are
// frames of the session; text messages are StreamCommands.
type stream struct {
	id     string
	runner *scan.Runner
	max    int64

	mu    sync.Mutex
	conn  WebSocketConnWriter
	frame int
}

// scanWebSocketHandler upgrades the connection and runs a scan session on it.
func (s *Server) scanWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	if s.sessions == nil {
		s.writeErrorResponse(w, "Streaming is not available", http.StatusServiceUnavailable)
		return
	}
	runner, err := s.sessions()
	if err != nil {
		s.writeErrorResponse(w, "Failed to start session: "+err.Error(), http.StatusInternalServerError)
		return
	}
	defer runner.Close()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	st := &stream{id: uuid.NewString(), runner: runner, conn: conn, max: s.maxUploadMB << 20}
	slog.Info("WebSocket connection established", "remote_addr", r.RemoteAddr, "session", st.id)

	runner.StartSession()
	unsubscribe := runner.Notifier().Subscribe(func(n scan.Notice) {
		st.send(StreamMessage{Type: "status", Message: n.Message})
	})
	defer unsubscribe()
	st.send(StreamMessage{Type: "status", Message: runner.Notifier().Message()})

	s.serveStream(conn, st)
}

func (s *Server) serveStream(conn *websocket.Conn, st *stream) {
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		return nil
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
					return
				}
			}
		}
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Error("WebSocket error", "error", err, "session", st.id)
			}
			return
		}
		websocketMessagesTotal.WithLabelValues("received").Inc()
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))

		switch messageType {
		case websocket.BinaryMessage:
			s.handleFrame(st, data)
		case websocket.TextMessage:
			st.handleCommand(data)
		}
	}
}

// handleFrame scans one frame. Only detections that pass the session's
// deduplication are reported.
func (s *Server) handleFrame(st *stream, data []byte) {
	st.mu.Lock()
	st.frame++
	frame := st.frame
	st.mu.Unlock()

	img, err := media.Decode(bytes.NewReader(data), st.max)
	if err != nil {
		scanFailed("stream")
		st.runner.Notifier().Notify("Failed to decode frame", true)
		st.send(StreamMessage{Type: "frame", Frame: frame, Error: err.Error()})
		return
	}

	start := time.Now()
	rep, err := st.runner.ScanImage(context.Background(), img)
	scanFinished("stream", start, rep.Detections, err)
	if err != nil {
		slog.Warn("Frame scan failed", "session", st.id, "frame", frame, "error", err)
		st.send(StreamMessage{Type: "frame", Frame: frame, Error: err.Error()})
		return
	}

	for i := range rep.Fresh {
		st.send(StreamMessage{Type: "detection", Frame: frame, Detection: &rep.Fresh[i]})
	}
	st.send(StreamMessage{Type: "frame", Frame: frame, Count: rep.Count})
}

func (st *stream) handleCommand(data []byte) {
	var cmd StreamCommand
	if err := json.Unmarshal(data, &cmd); err != nil {
		st.send(StreamMessage{Type: "status", Error: "invalid command: " + err.Error()})
		return
	}
	switch cmd.Type {
	case "reset":
		st.runner.StartSession()
		st.runner.Notifier().Reset()
	case "clear":
		st.runner.ClearOverlay()
	case "overlay":
		png, err := utils.EncodePNG(st.runner.Scanner().Surface.Snapshot())
		if err != nil {
			st.send(StreamMessage{Type: "overlay", Error: err.Error()})
			return
		}
		st.send(StreamMessage{Type: "overlay", Image: base64.StdEncoding.EncodeToString(png)})
	default:
		st.send(StreamMessage{Type: "status", Error: "unsupported command: " + cmd.Type})
	}
}

func (st *stream) send(msg StreamMessage) {
	msg.Session = st.id
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("Failed to marshal stream message", "error", err)
		return
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if err := st.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Debug("Failed to send stream message", "error", err, "session", st.id)
		return
	}
	websocketMessagesTotal.WithLabelValues("sent").Inc()
}

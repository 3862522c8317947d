package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/slipway-sh/slipway/docker"
)

const (
	terminalPingInterval = 10 * time.Second
	terminalWriteWait    = 5 * time.Second
	terminalPongWait     = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Project access was already checked by the route middleware; the
	// browser origin adds nothing on top of the credentials.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ansiEscape matches the CSI and OSC sequences a shell emits; the browser
// terminal renders plain text, so they are stripped before forwarding.
var ansiEscape = regexp.MustCompile(`\x1b(\[[0-9;?]*[a-zA-Z]|\][^\x07]*\x07)`)

// terminalInput is the downstream frame format: one shell line per message.
type terminalInput struct {
	Message string `json:"message"`
}

// HandleTerminal upgrades the connection to a websocket and bridges it to an
// interactive shell inside the project container. The session ends when
// either side closes or the container goes away.
func (h *Handlers) HandleTerminal(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "owner")
	project := chi.URLParam(r, "project")

	proj, err := h.repos.Projects.FindByOwnerAndName(owner, project)
	if err != nil {
		writeError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Websocket upgrade failed",
			"layer", "handlers",
			"operation", "terminal",
			"project_id", proj.ID,
			"error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	// Make the client prove it is alive before paying for the exec.
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(terminalPongWait))
	})
	if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(terminalWriteWait)); err != nil {
		return
	}
	_ = conn.SetReadDeadline(time.Now().Add(terminalPongWait))

	session, err := h.driver.ExecInteractive(r.Context(), proj.ContainerName(), []string{"bash"})
	if err != nil {
		slog.Error("Exec attach failed",
			"layer", "handlers",
			"operation", "terminal",
			"project_id", proj.ID,
			"error", err)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "exec failed"),
			time.Now().Add(terminalWriteWait))
		return
	}
	defer func() { _ = session.Close() }()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// ReadMessage blocks until the pong deadline; when the shell side ends
	// first, yank the deadline so the downstream pump returns right away.
	go func() {
		<-ctx.Done()
		_ = conn.SetReadDeadline(time.Now())
	}()

	go h.terminalUpstream(ctx, cancel, conn, session)
	h.terminalDownstream(ctx, cancel, conn, session)

	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(terminalWriteWait))
}

// terminalUpstream pumps shell output to the client as text frames and keeps
// the connection alive with periodic pings.
func (h *Handlers) terminalUpstream(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, session docker.ExecSession) {
	defer cancel()

	output := make(chan []byte)
	go func() {
		defer close(output)
		buf := make([]byte, 4096)
		for {
			n, err := session.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				select {
				case output <- chunk:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(terminalPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(terminalWriteWait)); err != nil {
				return
			}
		case chunk, ok := <-output:
			if !ok {
				return
			}
			text := ansiEscape.ReplaceAll(chunk, nil)
			if err := conn.WriteMessage(websocket.TextMessage, text); err != nil {
				return
			}
		}
	}
}

// terminalDownstream feeds client input lines into the shell.
func (h *Handlers) terminalDownstream(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, session docker.ExecSession) {
	defer cancel()

	for {
		if ctx.Err() != nil {
			return
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Debug("Terminal connection closed",
					"layer", "handlers",
					"operation", "terminal",
					"error", err)
			}
			return
		}

		var input terminalInput
		if err := json.Unmarshal(data, &input); err != nil {
			continue // Not an input frame; ignore
		}

		if _, err := session.Write([]byte(input.Message + "\n")); err != nil {
			return
		}
	}
}

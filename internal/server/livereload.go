package server

import (
	"bytes"
	"context"
	"net/http"
	"sync"

	"github.com/coder/websocket"

	"github.com/Wyatt-Stanke/ctf/internal/logging"
)

// reloadPath is the websocket endpoint the injected client script connects
// to. Namespaced so it cannot collide with challenge content.
const reloadPath = "/__ctfc/reload"

const reloadScript = `<script>
(function () {
  var proto = location.protocol === "https:" ? "wss://" : "ws://";
  var ws = new WebSocket(proto + location.host + "` + reloadPath + `");
  ws.onmessage = function () { location.reload(); };
})();
</script>`

// reloadHub tracks live-reload websocket clients and pushes a reload
// notification to all of them when the source tree changes.
type reloadHub struct {
	clients map[*websocket.Conn]struct{}
	mutex   sync.Mutex
	log     logging.Logger
}

func newReloadHub(log logging.Logger) *reloadHub {
	return &reloadHub{
		clients: make(map[*websocket.Conn]struct{}),
		log:     log,
	}
}

func (h *reloadHub) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.log.Debug("websocket accept failed", "error", err)
		return
	}

	h.mutex.Lock()
	h.clients[conn] = struct{}{}
	h.mutex.Unlock()

	// Block until the client goes away; Reader returns when the
	// connection closes.
	_, _, _ = conn.Reader(r.Context())

	h.mutex.Lock()
	delete(h.clients, conn)
	h.mutex.Unlock()
	conn.Close(websocket.StatusNormalClosure, "")
}

func (h *reloadHub) broadcast(ctx context.Context) {
	h.mutex.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mutex.Unlock()

	for _, conn := range conns {
		if err := conn.Write(ctx, websocket.MessageText, []byte("reload")); err != nil {
			h.log.Debug("reload push failed", "error", err)
		}
	}
}

func (h *reloadHub) closeAll() {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for conn := range h.clients {
		conn.Close(websocket.StatusGoingAway, "server shutting down")
	}
	h.clients = make(map[*websocket.Conn]struct{})
}

// injectReloadScript inserts the live-reload client before </body>, or
// appends it when no closing body tag exists. Only called when live reload
// is enabled, so default dev responses stay byte-identical to build output.
func injectReloadScript(body []byte) []byte {
	if i := bytes.LastIndex(body, []byte("</body>")); i >= 0 {
		var buf bytes.Buffer
		buf.Write(body[:i])
		buf.WriteString(reloadScript)
		buf.WriteString("\n")
		buf.Write(body[i:])
		return buf.Bytes()
	}
	return append(body, []byte("\n"+reloadScript+"\n")...)
}

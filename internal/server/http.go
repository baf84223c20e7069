package server

import (
	"fmt"
	"io"
	xhttp "net/http"

	"github.com/yola1107/kratos/v2/log"
	"github.com/yola1107/kratos/v2/middleware/recovery"
	"github.com/yola1107/kratos/v2/transport/http"

	"github.com/gamehall/monopoly/internal/biz/game"
	"github.com/gamehall/monopoly/internal/biz/player"
	"github.com/gamehall/monopoly/internal/conf"
)

// maxSnapshotBody caps operator snapshot uploads.
const maxSnapshotBody = 1 << 20

// NewHTTPServer new the operator http server: health, stats and the
// snapshot export/import repair hatch.
func NewHTTPServer(c *conf.Server, gm *game.Manager, pm *player.Manager, logger log.Logger) *http.Server {
	opts := []http.ServerOption{
		http.Middleware(
			recovery.Recovery(),
		),
	}
	if c.Http.Addr != "" {
		opts = append(opts, http.Address(c.Http.Addr))
	}
	if t := c.Http.Timeout(); t > 0 {
		opts = append(opts, http.Timeout(t))
	}
	srv := http.NewServer(opts...)
	lg := log.NewHelper(logger)

	srv.HandleFunc("/healthz", func(w xhttp.ResponseWriter, r *xhttp.Request) {
		w.WriteHeader(xhttp.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv.HandleFunc("/admin/stats", func(w xhttp.ResponseWriter, r *xhttp.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"games":%d,"sessions":%d}`, gm.Len(), pm.Len())
	})

	// GET exports a consistent snapshot of a resident game; POST replaces
	// the live state, the repair path for a halted game.
	srv.HandleFunc("/admin/snapshot", func(w xhttp.ResponseWriter, r *xhttp.Request) {
		id := r.URL.Query().Get("game")
		if id == "" {
			xhttp.Error(w, "missing game", xhttp.StatusBadRequest)
			return
		}
		g := gm.Get(id)
		if g == nil {
			xhttp.Error(w, "game not resident", xhttp.StatusNotFound)
			return
		}
		switch r.Method {
		case xhttp.MethodGet:
			snap, err := g.ExportSnapshot()
			if err != nil {
				lg.Warnf("snapshot export game=%s: %v", id, err)
				xhttp.Error(w, err.Error(), xhttp.StatusConflict)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write(snap)
		case xhttp.MethodPost:
			body, err := io.ReadAll(io.LimitReader(r.Body, maxSnapshotBody))
			if err != nil {
				xhttp.Error(w, err.Error(), xhttp.StatusBadRequest)
				return
			}
			if err := g.ImportSnapshot(body); err != nil {
				lg.Warnf("snapshot import game=%s: %v", id, err)
				xhttp.Error(w, err.Error(), xhttp.StatusUnprocessableEntity)
				return
			}
			w.WriteHeader(xhttp.StatusNoContent)
		default:
			xhttp.Error(w, "method not allowed", xhttp.StatusMethodNotAllowed)
		}
	})

	return srv
}

// Package ws is the websocket front of the service: it upgrades connections,
// owns session lifecycles and hands raw frames to the bound Handler. Framing
// is JSON text messages, one envelope per frame.
package ws

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/yola1107/kratos/v2/log"
	"github.com/yola1107/kratos/v2/transport"
)

var _ transport.Server = (*Server)(nil)

// ServerOption is a websocket server option.
type ServerOption func(*Server)

func Network(network string) ServerOption {
	return func(o *Server) { o.network = network }
}

func Address(addr string) ServerOption {
	return func(o *Server) { o.address = addr }
}

func Path(path string) ServerOption {
	return func(o *Server) { o.path = path }
}

func TlsConf(tlsConfig *tls.Config) ServerOption {
	return func(o *Server) { o.tlsConf = tlsConfig }
}

func MaxConnLimit(maxConnLimit int32) ServerOption {
	return func(o *Server) { o.maxConnLimit = maxConnLimit }
}

func Heartbeat(read, ping, write time.Duration) ServerOption {
	return func(o *Server) {
		o.sessionConf.ReadDeadline, o.sessionConf.PingInterval, o.sessionConf.WriteTimeout = read, ping, write
	}
}

func SendChanSize(size int) ServerOption {
	return func(o *Server) { o.sessionConf.SendChanSize = size }
}

// WithHandler binds the frame handler; the server is inert without one.
func WithHandler(h Handler) ServerOption {
	return func(o *Server) { o.handler = h }
}

// Server is the websocket server wrapper.
type Server struct {
	*http.Server
	lis          net.Listener
	tlsConf      *tls.Config
	path         string
	network      string
	address      string
	maxConnLimit int32
	sessionConf  *SessionConfig
	upgrader     *websocket.Upgrader
	sessions     *registry
	handler      Handler
}

// NewServer creates a websocket server by options.
func NewServer(opts ...ServerOption) *Server {
	srv := &Server{
		network: "tcp",
		address: ":0",
		path:    "/ws",
		sessionConf: &SessionConfig{
			WriteTimeout: 10 * time.Second,
			PingInterval: 15 * time.Second,
			ReadDeadline: 60 * time.Second,
			SendChanSize: 128,
		},
		maxConnLimit: 10000,
		upgrader: &websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	for _, o := range opts {
		o(srv)
	}
	srv.sessions = newRegistry(int(srv.maxConnLimit))
	mux := http.NewServeMux()
	mux.Handle(srv.path, CORS(srv.handleConnections()))
	srv.Server = &http.Server{
		Addr:      srv.address,
		Handler:   mux,
		TLSConfig: srv.tlsConf,
	}
	return srv
}

// Start starts the websocket server.
func (s *Server) Start(ctx context.Context) error {
	if s.handler == nil {
		return errors.New("ws: no handler bound")
	}
	lis, err := net.Listen(s.network, s.address)
	if err != nil {
		return err
	}
	s.lis = lis
	s.BaseContext = func(net.Listener) context.Context {
		return ctx
	}
	log.Infof("[websocket] server listening on: %s", s.lis.Addr().String())
	if s.tlsConf != nil {
		err = s.ServeTLS(s.lis, "", "")
	} else {
		err = s.Serve(s.lis)
	}
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop stops the websocket server and drops every session.
func (s *Server) Stop(ctx context.Context) error {
	log.Info("[websocket] server stopping")
	err := s.Shutdown(ctx)
	s.sessions.closeAll()
	return err
}

func (s *Server) handleConnections() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cnt := s.sessions.len(); cnt >= int(s.maxConnLimit) {
			w.WriteHeader(http.StatusServiceUnavailable)
			log.Warnf("[websocket] over max connections (%d)", cnt)
			return
		}

		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Errorf("[websocket] upgrade error: %v", err)
			return
		}

		_ = NewSession(s, conn, s.sessionConf)
	}
}

func (s *Server) OnSessionOpen(sess *Session) {
	if !s.sessions.add(sess) {
		log.Warnf("[websocket] over max connections, dropping %q", sess.ID())
		sess.Close(false)
		return
	}
	s.handler.OnSessionOpen(sess)
}

func (s *Server) OnSessionClose(sess *Session) {
	s.handler.OnSessionClose(sess)
	s.sessions.remove(sess)
}

func (s *Server) DispatchMessage(sess *Session, data []byte) error {
	return s.handler.DispatchMessage(sess, data)
}

func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		}
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE, UPDATE")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Length, X-CSRF-Token, Token, session")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Length, Access-Control-Allow-Origin, Access-Control-Allow-Headers")
		w.Header().Set("Access-Control-Allow-Credentials", "true")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

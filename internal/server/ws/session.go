package ws

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/yola1107/kratos/v2/library/xgo"
	"github.com/yola1107/kratos/v2/log"

	"github.com/gamehall/monopoly/internal/protocol"
)

var errSessionClosed = errors.New("session: closed send")

// Handler receives session lifecycle callbacks and inbound frames. The
// service layer implements it.
type Handler interface {
	// OnSessionOpen fires once the socket is upgraded, before any frame.
	OnSessionOpen(sess *Session)
	// OnSessionClose fires exactly once when the socket goes away.
	OnSessionClose(sess *Session)
	// DispatchMessage handles one raw inbound frame.
	DispatchMessage(sess *Session, data []byte) error
}

type SessionConfig struct {
	WriteTimeout time.Duration
	PingInterval time.Duration
	ReadDeadline time.Duration
	SendChanSize int
}

// Session is one live websocket. The write pump drains a bounded channel so
// pushes never block the caller; a slow consumer is force-closed when the
// channel fills.
type Session struct {
	id         string
	playerID   atomic.Int32
	gameID     atomic.Value // string
	h          Handler
	connMu     sync.Mutex
	conn       *websocket.Conn
	config     *SessionConfig
	sendChan   chan []byte
	closed     atomic.Bool
	lastActive atomic.Value // time.Time
	ctx        context.Context
	cancel     context.CancelFunc
	sendMu     sync.Mutex
}

func NewSession(h Handler, conn *websocket.Conn, config *SessionConfig) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:       uuid.New().String(),
		h:        h,
		conn:     conn,
		config:   config,
		sendChan: make(chan []byte, config.SendChanSize),
		ctx:      ctx,
		cancel:   cancel,
	}
	s.gameID.Store("")
	s.lastActive.Store(time.Now())
	s.h.OnSessionOpen(s)
	go s.readPump()
	go s.writePump()
	go s.heartbeat()
	return s
}

func (s *Session) ID() string { return s.id }

// Bind ties the session to a player of a game after join or reconnect.
func (s *Session) Bind(gameID string, playerID int32) {
	s.gameID.Store(gameID)
	s.playerID.Store(playerID)
}

func (s *Session) PlayerID() int32 { return s.playerID.Load() }
func (s *Session) GameID() string  { return s.gameID.Load().(string) }
func (s *Session) Bound() bool     { return s.playerID.Load() > 0 }

func (s *Session) RemoteIP() string {
	return s.conn.RemoteAddr().String()
}

func (s *Session) LastActive() time.Time {
	return s.lastActive.Load().(time.Time)
}

func (s *Session) Closed() bool {
	return s.closed.Load()
}

// Send queues one raw frame. A full channel counts as a dead consumer.
func (s *Session) Send(message []byte) error {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	if s.Closed() {
		return errSessionClosed
	}
	select {
	case s.sendChan <- message:
		return nil
	case <-s.ctx.Done():
		return errSessionClosed
	default:
		log.Warnf("sessionID=%q send channel full, dropping connection", s.id)
		go s.Close(true)
		return errSessionClosed
	}
}

// SendFrame marshals and queues one envelope.
func (s *Session) SendFrame(typ string, seq int64, body any) error {
	data, err := protocol.Encode(typ, seq, body)
	if err != nil {
		return err
	}
	return s.Send(data)
}

func (s *Session) readPump() {
	defer xgo.RecoverFromError(nil)
	defer s.Close(false)

	for {
		if err := s.conn.SetReadDeadline(time.Now().Add(s.config.ReadDeadline)); err != nil {
			log.Errorf("sessionID=%q set read deadline error: %v", s.id, err)
			return
		}

		msgType, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warnf("sessionID=%q unexpected close: %v", s.id, err)
			}
			return
		}

		s.lastActive.Store(time.Now())

		switch msgType {
		case websocket.TextMessage, websocket.BinaryMessage:
			_ = s.h.DispatchMessage(s, data)
		case websocket.PingMessage:
			s.writeControl(websocket.PongMessage, data)
		case websocket.PongMessage:
		case websocket.CloseMessage:
			return
		default:
			log.Warnf("sessionID=%q unsupported message type: %d", s.id, msgType)
		}
	}
}

func (s *Session) writePump() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case msg, ok := <-s.sendChan:
			if !ok {
				return
			}
			if err := s.writeTextMessage(msg); err != nil {
				if errors.Is(err, errSessionClosed) || strings.Contains(err.Error(), "close sent") {
					log.Infof("sessionID=%q write aborted, reason: %v", s.id, err)
				} else {
					log.Errorf("sessionID=%q write error: %v", s.id, err)
				}
				s.Close(true)
				return
			}
		}
	}
}

func (s *Session) heartbeat() {
	ticker := time.NewTicker(s.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return

		case <-ticker.C:
			if s.Closed() {
				return
			}
			if time.Since(s.LastActive()) > s.config.ReadDeadline {
				log.Warnf("sessionID=%q heartbeat timeout", s.id)
				s.Close(true)
				return
			}
			s.writeControl(websocket.PingMessage, nil)
		}
	}
}

// Close tears the session down exactly once and fires OnSessionClose.
func (s *Session) Close(force bool) bool {
	if !s.closed.CompareAndSwap(false, true) {
		return false
	}

	s.closeNotify(force)

	s.cancel()

	s.sendMu.Lock()
	close(s.sendChan)
	s.sendMu.Unlock()

	s.connMu.Lock()
	_ = s.conn.Close()
	s.connMu.Unlock()

	s.h.OnSessionClose(s)
	return true
}

func (s *Session) closeNotify(force bool) {
	reason := "Normal Closure"
	if force {
		reason = "Force Closure"
		if time.Since(s.LastActive()) > s.config.ReadDeadline {
			reason = "Force Closure (Heartbeat timeout)"
		}
	}
	message := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
	s.writeControl(websocket.CloseMessage, message)
}

func (s *Session) writeControl(msgType int, data []byte) {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	_ = s.conn.WriteControl(msgType, data, time.Now().Add(s.config.WriteTimeout))
}

func (s *Session) writeTextMessage(data []byte) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.Closed() {
		return errSessionClosed
	}
	if err := s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout)); err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

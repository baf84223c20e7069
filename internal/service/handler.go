package service

import (
	"encoding/json"

	kerrors "github.com/yola1107/kratos/v2/errors"

	"github.com/gamehall/monopoly/internal/biz/game"
	"github.com/gamehall/monopoly/internal/protocol"
	"github.com/gamehall/monopoly/internal/server/ws"
	"github.com/gamehall/monopoly/pkg/codes"
)

func (s *Service) OnSessionOpen(sess *ws.Session) {
	s.log.Debugf("session open id=%s ip=%s", sess.ID(), sess.RemoteIP())
}

// OnSessionClose routes the drop to the bound game, which starts the
// reconnect grace window. An unbound session just goes away.
func (s *Service) OnSessionClose(sess *ws.Session) {
	b := s.players.Unbind(sess.ID())
	if b == nil {
		return
	}
	if g := s.games.Get(b.GameID); g != nil {
		g.Disconnect(b.PlayerID)
	}
	s.log.Debugf("session close id=%s game=%s player=%d", sess.ID(), b.GameID, b.PlayerID)
}

// DispatchMessage decodes one frame and routes it. Join and reconnect may
// reference a game that is not resident yet; everything else requires a
// bound session.
func (s *Service) DispatchMessage(sess *ws.Session, data []byte) error {
	env, err := protocol.Decode(data)
	if err != nil {
		s.sendErr(sess, 0, codes.ErrBadPayload.WithCause(err))
		return nil
	}

	switch env.Type {
	case protocol.TypePing:
		return sess.SendFrame(protocol.TypePong, env.Seq, nil)

	case protocol.TypeJoin:
		var req protocol.JoinReq
		if err := json.Unmarshal(env.Payload, &req); err != nil || req.GameID == "" || req.Name == "" {
			s.sendErr(sess, env.Seq, codes.ErrBadPayload)
			return nil
		}
		s.games.GetOrCreate(req.GameID).Join(sess, env.Seq, req.Name, req.Color)
		return nil

	case protocol.TypeReconnect:
		var req protocol.ReconnectReq
		if err := json.Unmarshal(env.Payload, &req); err != nil || req.GameID == "" {
			s.sendErr(sess, env.Seq, codes.ErrBadPayload)
			return nil
		}
		s.games.GetOrCreate(req.GameID).Reconnect(sess, env.Seq, req.PlayerID, req.Token)
		return nil

	case protocol.TypeLeave:
		g := s.boundGame(sess, env.Seq)
		if g != nil {
			g.Leave(sess, env.Seq, sess.PlayerID())
		}
		return nil

	default:
		g := s.boundGame(sess, env.Seq)
		if g != nil {
			g.Handle(sess, env)
		}
		return nil
	}
}

// boundGame resolves the session's game, reporting the failure inline.
func (s *Service) boundGame(sess *ws.Session, seq int64) *game.Game {
	if !sess.Bound() {
		s.sendErr(sess, seq, codes.ErrSessionNotFound)
		return nil
	}
	g := s.games.Get(sess.GameID())
	if g == nil {
		s.sendErr(sess, seq, codes.ErrGameNotFound)
		return nil
	}
	return g
}

func (s *Service) sendErr(sess *ws.Session, seq int64, err error) {
	e := kerrors.FromError(err)
	_ = sess.SendFrame(protocol.TypeError, seq, &protocol.ErrorResp{
		Code:    e.Code,
		Reason:  e.Reason,
		Message: e.Message,
	})
}

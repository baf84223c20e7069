package game

import (
	kerrors "github.com/yola1107/kratos/v2/errors"

	"github.com/gamehall/monopoly/internal/model"
	"github.com/gamehall/monopoly/internal/protocol"
	"github.com/gamehall/monopoly/internal/server/ws"
)

// broadcast fans events out to every online slot. The requester's frame
// echoes the request seq so the client can settle its pending call; everyone
// else receives a plain push.
func (g *Game) broadcast(evs []model.Event, requester *ws.Session, seq int64) {
	if len(evs) == 0 && requester == nil {
		return
	}
	push := &protocol.EventsPush{GameID: g.id, Events: evs}
	for _, slot := range g.slots {
		if !slot.online() {
			continue
		}
		frameSeq := int64(0)
		if requester != nil && slot.Sess.ID() == requester.ID() {
			frameSeq = seq
		}
		if len(evs) == 0 && frameSeq == 0 {
			continue
		}
		_ = slot.Sess.SendFrame(protocol.TypeEvents, frameSeq, push)
	}
}

// ack settles an idempotent retry without replaying anything.
func (g *Game) ack(sess *ws.Session, seq int64) {
	_ = sess.SendFrame(protocol.TypeEvents, seq, &protocol.EventsPush{GameID: g.id})
}

// pushStateAll resyncs every online client with a full snapshot.
func (g *Game) pushStateAll() {
	snap, err := model.MarshalSnapshot(g.state)
	if err != nil {
		g.latchFatal()
		return
	}
	push := &protocol.StatePush{GameID: g.id, State: snap}
	for _, slot := range g.slots {
		if slot.online() {
			_ = slot.Sess.SendFrame(protocol.TypeState, 0, push)
		}
	}
}

func (g *Game) sendErr(sess *ws.Session, seq int64, err error) {
	if sess == nil || sess.Closed() {
		return
	}
	e := kerrors.FromError(err)
	_ = sess.SendFrame(protocol.TypeError, seq, &protocol.ErrorResp{
		Code:    e.Code,
		Reason:  e.Reason,
		Message: e.Message,
	})
}

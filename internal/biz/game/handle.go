package game

import (
	"context"
	"encoding/json"

	"github.com/yola1107/kratos/v2/library/xgo"

	"github.com/gamehall/monopoly/internal/model"
	"github.com/gamehall/monopoly/internal/protocol"
	"github.com/gamehall/monopoly/internal/server/ws"
	"github.com/gamehall/monopoly/pkg/codes"
)

// Handle routes one frame from a bound session through the engine. Runs on
// the actor loop; the request seq gives retries at-most-once semantics.
func (g *Game) Handle(sess *ws.Session, env *protocol.Envelope) {
	g.post(func() {
		if !g.gate(sess, env.Seq) {
			return
		}
		pid := sess.PlayerID()
		slot, ok := g.slots[pid]
		if !ok {
			g.sendErr(sess, env.Seq, codes.ErrPlayerNotFound)
			return
		}
		if env.Seq > 0 && env.Seq <= slot.LastSeq {
			g.ack(sess, env.Seq)
			return
		}

		evs, err := g.apply(sess, pid, env)
		if err != nil {
			g.sendErr(sess, env.Seq, err)
			return
		}
		if env.Seq > 0 {
			slot.LastSeq = env.Seq
		}
		g.commit(evs, sess, env.Seq)
	})
}

// apply decodes the payload and invokes the matching engine operation.
// Unknown types and malformed payloads are validation errors; the closed
// switch is the whole inbound surface.
func (g *Game) apply(sess *ws.Session, pid int32, env *protocol.Envelope) ([]model.Event, error) {
	switch env.Type {
	case protocol.TypeRoll:
		return g.engine.RollDice(g.state, pid)
	case protocol.TypeUseCard:
		return g.engine.UseJailCard(g.state, pid)
	case protocol.TypeBuy:
		return g.engine.Buy(g.state, pid)
	case protocol.TypeDecline:
		return g.engine.Decline(g.state, pid)
	case protocol.TypeEndTurn:
		return g.engine.EndTurn(g.state, pid)

	case protocol.TypeBid:
		var req protocol.BidReq
		if err := decode(env.Payload, &req); err != nil {
			return nil, err
		}
		return g.engine.Bid(g.state, pid, req.Amount)
	case protocol.TypePass:
		return g.engine.PassAuction(g.state, pid)

	case protocol.TypeBuild, protocol.TypeSell, protocol.TypeMortgage, protocol.TypeUnmortgage:
		var req protocol.SquareReq
		if err := decode(env.Payload, &req); err != nil {
			return nil, err
		}
		switch env.Type {
		case protocol.TypeBuild:
			return g.engine.Build(g.state, pid, req.SquareID)
		case protocol.TypeSell:
			return g.engine.Sell(g.state, pid, req.SquareID)
		case protocol.TypeMortgage:
			return g.engine.Mortgage(g.state, pid, req.SquareID)
		default:
			return g.engine.Unmortgage(g.state, pid, req.SquareID)
		}

	case protocol.TypeTrade:
		var req protocol.TradeReq
		if err := decode(env.Payload, &req); err != nil {
			return nil, err
		}
		return g.engine.ProposeTrade(g.state, pid, req.To, req.Offer, req.Want)
	case protocol.TypeAccept:
		var req protocol.TradeRespReq
		if err := decode(env.Payload, &req); err != nil {
			return nil, err
		}
		return g.engine.AcceptTrade(g.state, pid, req.TradeID)
	case protocol.TypeReject:
		var req protocol.TradeRespReq
		if err := decode(env.Payload, &req); err != nil {
			return nil, err
		}
		return g.engine.RejectTrade(g.state, pid, req.TradeID)
	case protocol.TypeCounter:
		var req protocol.CounterReq
		if err := decode(env.Payload, &req); err != nil {
			return nil, err
		}
		return g.engine.CounterTrade(g.state, pid, req.TradeID, req.Offer, req.Want)

	case protocol.TypeChat:
		var req protocol.ChatReq
		if err := decode(env.Payload, &req); err != nil {
			return nil, err
		}
		return g.engine.Chat(g.state, pid, req.Text)

	case protocol.TypeSignal:
		return nil, g.signal(pid, env)

	case protocol.TypeAdvice:
		return nil, g.advice(sess, env.Seq)

	default:
		return nil, codes.ErrUnknownMessage
	}
}

// signal relays an opaque payload between co-players; the relay never reads
// the data. To zero broadcasts to everyone else (presence), otherwise the
// frame is unicast. An offline target is absorbed: logged, sender still gets
// its ack, the game is unaffected.
func (g *Game) signal(pid int32, env *protocol.Envelope) error {
	var req protocol.SignalReq
	if err := decode(env.Payload, &req); err != nil {
		return err
	}
	push := &protocol.SignalPush{From: pid, Data: req.Data}
	if req.To == 0 {
		for id, slot := range g.slots {
			if id != pid && slot.online() {
				_ = slot.Sess.SendFrame(protocol.TypeSignaled, 0, push)
			}
		}
		return nil
	}
	target, ok := g.slots[req.To]
	if !ok {
		return codes.ErrPlayerNotFound
	}
	if !target.online() || target.Sess.SendFrame(protocol.TypeSignaled, 0, push) != nil {
		g.log.Debugf("signal dropped, target offline from=%d to=%d", pid, req.To)
	}
	return nil
}

// advice snapshots the state on the loop, then queries the advisory backend
// off it; a slow or dead advisor never stalls the game.
func (g *Game) advice(sess *ws.Session, seq int64) error {
	snap, err := model.MarshalSnapshot(g.state)
	if err != nil {
		g.latchFatal()
		return codes.ErrGameCorrupt
	}
	go func() {
		defer xgo.RecoverFromError(nil)
		res, err := g.repo.Advice(context.Background(), snap)
		if err != nil {
			g.log.Warnf("advisory call failed: %v", err)
			g.sendErr(sess, seq, codes.ErrAdvisory)
			return
		}
		_ = sess.SendFrame(protocol.TypeAdvised, seq, &protocol.AdvicePush{Advice: res})
	}()
	return nil
}

func decode(payload json.RawMessage, into any) error {
	if len(payload) == 0 {
		return codes.ErrBadPayload
	}
	if err := json.Unmarshal(payload, into); err != nil {
		return codes.ErrBadPayload.WithCause(err)
	}
	return nil
}

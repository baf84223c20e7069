package game

import (
	"time"

	"github.com/yola1107/kratos/v2/library/xgo"

	"github.com/gamehall/monopoly/internal/model"
)

// buyReserve is the cash a robot keeps untouched when deciding to buy.
const buyReserve = 200

// scheduleRobot arms a short-delay action when the awaited input belongs to
// a robot-controlled slot. Runs on the loop after every commit; the captured
// seq voids the timer if anything else moves the game first.
func (g *Game) scheduleRobot() {
	if g.fatal || g.closed {
		return
	}
	pid, ok := g.robotActor()
	if !ok {
		return
	}
	seq := g.state.Seq
	delay := time.Duration(xgo.RandInt(600, 1800)) * time.Millisecond
	g.store.Once(delay, func() {
		if g.fatal || g.closed || g.state.Seq != seq {
			return
		}
		g.robotAct(pid)
	})
}

// awaitedActor returns the single player the table is blocked on. Auctions
// block on nobody in particular; their window deadline closes them.
func (g *Game) awaitedActor() (int32, bool) {
	s := g.state
	switch s.Phase {
	case model.PhAwaitRoll, model.PhAwaitAction:
		return s.Current, true
	case model.PhTrade:
		if s.Trade != nil {
			return s.Trade.To, true
		}
	}
	return 0, false
}

// robotActor returns the player whose decision the game is waiting on, when
// that seat is under robot control.
func (g *Game) robotActor() (int32, bool) {
	s := g.state
	switch s.Phase {
	case model.PhAwaitRoll, model.PhAwaitAction:
		if slot, ok := g.slots[s.Current]; ok && slot.RobotCtl {
			return s.Current, true
		}
	case model.PhTrade:
		if s.Trade == nil {
			return 0, false
		}
		if slot, ok := g.slots[s.Trade.To]; ok && slot.RobotCtl {
			return s.Trade.To, true
		}
	case model.PhAuction:
		if s.Auction == nil {
			return 0, false
		}
		for _, p := range s.Alive() {
			if s.Auction.Passed[p.ID] || p.ID == s.Auction.HighBidder {
				continue
			}
			if slot, ok := g.slots[p.ID]; ok && slot.RobotCtl {
				return p.ID, true
			}
		}
	}
	return 0, false
}

// robotAct plays one decision for a robot-controlled seat. The strategy is
// deliberately tame: keep the table moving, never chase auctions or trades.
func (g *Game) robotAct(pid int32) {
	s := g.state
	var evs []model.Event
	var err error

	switch s.Phase {
	case model.PhAwaitRoll:
		if s.Current != pid {
			return
		}
		if !s.Rolled {
			if p := s.PlayerByID(pid); p != nil && p.InJail && p.JailCards > 0 && xgo.IsHitFloat(0.8) {
				if evs, err = g.engine.UseJailCard(s, pid); err == nil {
					break
				}
			}
			evs, err = g.engine.RollDice(s, pid)
			break
		}
		evs = g.settleDebt(pid)
		more, e2 := g.engine.EndTurn(s, pid)
		evs, err = append(evs, more...), e2

	case model.PhAwaitAction:
		if s.Current != pid {
			return
		}
		q := s.SquareByID(s.PendingBuy)
		p := s.PlayerByID(pid)
		if q != nil && p != nil && p.Money-q.Price >= buyReserve && xgo.IsHitFloat(0.9) {
			evs, err = g.engine.Buy(s, pid)
		} else {
			evs, err = g.engine.Decline(s, pid)
		}

	case model.PhAuction:
		evs, err = g.engine.PassAuction(s, pid)

	case model.PhTrade:
		if s.Trade == nil {
			return
		}
		evs, err = g.engine.RejectTrade(s, pid, s.Trade.ID)

	default:
		return
	}

	if err != nil {
		g.log.Warnf("robot act failed player=%d phase=%v: %v", pid, s.Phase, err)
		if len(evs) == 0 {
			return
		}
	}
	g.journal("robot act player=%d phase=%v", pid, s.Phase)
	g.commit(evs, nil, 0)
}

// autoAct enforces a phase deadline with the most conservative legal move,
// so one absent or stalling player never freezes the table.
func (g *Game) autoAct() {
	s := g.state
	var evs []model.Event
	var err error

	switch s.Phase {
	case model.PhAwaitRoll:
		if !s.Rolled {
			evs, err = g.engine.RollDice(s, s.Current)
			break
		}
		evs = g.settleDebt(s.Current)
		more, e2 := g.engine.EndTurn(s, s.Current)
		evs, err = append(evs, more...), e2

	case model.PhAwaitAction:
		evs, err = g.engine.Decline(s, s.Current)

	case model.PhAuction:
		evs, err = g.engine.CloseAuction(s)

	case model.PhTrade:
		if s.Trade == nil {
			return
		}
		evs, err = g.engine.RejectTrade(s, s.Trade.To, s.Trade.ID)

	default:
		return
	}

	if err != nil {
		g.log.Warnf("auto act failed phase=%v turn=%d: %v", s.Phase, s.Turn, err)
		if len(evs) == 0 {
			return
		}
	}
	g.journal("auto act phase=%v turn=%d", s.Phase, s.Turn)
	g.commit(evs, nil, 0)
}

// settleDebt raises cash for a player stuck below zero: sell the tallest
// improvements first, then mortgage bare squares, stopping as soon as the
// balance clears. The charge path guarantees liquidity covered the debt, so
// this always terminates at zero or above.
func (g *Game) settleDebt(pid int32) []model.Event {
	s := g.state
	var evs []model.Event
	for {
		p := s.PlayerByID(pid)
		if p == nil || p.Bankrupt || p.Money >= 0 {
			return evs
		}
		progressed := false
		// tallest improvement anywhere on the estate
		var best *model.Square
		for _, q := range s.Squares {
			if q.Owner == pid && q.Level > 0 && (best == nil || q.Level > best.Level) {
				best = q
			}
		}
		if best != nil {
			if more, err := g.engine.Sell(s, pid, best.ID); err == nil {
				evs = append(evs, more...)
				progressed = true
			}
		}
		if !progressed && p.Money < 0 {
			for _, q := range s.Squares {
				if q.Owner == pid && !q.Mortgaged && q.Level == 0 && q.Type.Priced() {
					if more, err := g.engine.Mortgage(s, pid, q.ID); err == nil {
						evs = append(evs, more...)
						progressed = true
						break
					}
				}
			}
		}
		if !progressed {
			return evs
		}
	}
}

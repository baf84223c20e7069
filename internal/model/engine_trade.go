package model

import (
	"github.com/gamehall/monopoly/pkg/codes"
)

// ProposeTrade opens a trade window against another player. Only the
// current player may initiate, only one trade may be pending per game, and
// improved squares cannot change hands.
func (e *Engine) ProposeTrade(s *State, from, to int32, offer, want TradeSide) ([]Event, error) {
	if err := e.requireTurn(s, from); err != nil {
		return nil, err
	}
	if s.Phase != PhAwaitRoll && s.Phase != PhAwaitAction {
		return nil, codes.ErrWrongPhase
	}
	if s.Trade != nil {
		return nil, codes.ErrTradeClosed
	}
	target := s.PlayerByID(to)
	if target == nil || to == from {
		return nil, codes.ErrPlayerNotFound
	}
	if target.Bankrupt {
		return nil, codes.ErrBankrupt
	}
	if err := e.validateSide(s, from, offer); err != nil {
		return nil, err
	}
	if err := e.validateSide(s, to, want); err != nil {
		return nil, err
	}

	s.TradeSeq++
	t := &Trade{
		ID:     s.TradeSeq,
		From:   from,
		To:     to,
		Offer:  offer,
		Want:   want,
		Status: TradePending,
	}
	e.snapshotBasis(s, t)
	s.Trade = t
	s.PrevPhase = s.Phase
	s.Phase = PhTrade

	var evs []Event
	emit(s, &evs, "trade.proposed", map[string]any{
		"tradeId": t.ID, "from": from, "to": to,
		"offerCash": offer.Cash, "offerSquares": offer.Squares, "offerJailCards": offer.JailCards,
		"wantCash": want.Cash, "wantSquares": want.Squares, "wantJailCards": want.JailCards,
	})
	s.AddLog("%s proposes a trade to %s", s.PlayerByID(from).Name, target.Name)
	return evs, nil
}

// AcceptTrade applies the exchange atomically. Every precondition is
// rechecked against the proposal-time basis first; any drift since the
// offer was made rejects with a conflict and leaves both estates untouched.
func (e *Engine) AcceptTrade(s *State, pid int32, tradeID int64) ([]Event, error) {
	t, err := e.pendingTrade(s, pid, tradeID)
	if err != nil {
		return nil, err
	}
	from := s.PlayerByID(t.From)
	to := s.PlayerByID(t.To)
	if from.Bankrupt || to.Bankrupt {
		return nil, codes.ErrTradeClosed
	}
	if from.Money != t.BasisFromMoney || to.Money != t.BasisToMoney {
		return nil, codes.ErrTradeStale
	}
	for sq, owner := range t.BasisOwners {
		if s.SquareByID(sq).Owner != owner {
			return nil, codes.ErrTradeStale
		}
	}
	if from.Money < t.Offer.Cash || to.Money < t.Want.Cash {
		return nil, codes.ErrInsufficientFunds
	}
	if from.JailCards < t.Offer.JailCards || to.JailCards < t.Want.JailCards {
		return nil, codes.ErrTradeStale
	}

	var evs []Event
	e.applySide(s, &evs, from, to, t.Offer)
	e.applySide(s, &evs, to, from, t.Want)
	t.Status = TradeAccepted
	s.Trade = nil
	s.Phase = s.PrevPhase
	emit(s, &evs, "trade.accepted", map[string]any{"tradeId": t.ID})
	s.AddLog("%s accepts the trade from %s", to.Name, from.Name)
	return evs, nil
}

// RejectTrade closes the window. Either party may close it: the recipient
// rejects, the initiator withdraws.
func (e *Engine) RejectTrade(s *State, pid int32, tradeID int64) ([]Event, error) {
	t := s.Trade
	if t == nil || t.Status != TradePending || t.ID != tradeID {
		return nil, codes.ErrTradeClosed
	}
	if pid != t.To && pid != t.From {
		return nil, codes.ErrTradeClosed
	}
	t.Status = TradeRejected
	s.Trade = nil
	s.Phase = s.PrevPhase
	var evs []Event
	emit(s, &evs, "trade.rejected", map[string]any{"tradeId": t.ID, "by": pid})
	return evs, nil
}

// CounterTrade replaces the pending offer with a reversed one: the original
// recipient becomes the initiator, with a fresh basis snapshot.
func (e *Engine) CounterTrade(s *State, pid int32, tradeID int64, offer, want TradeSide) ([]Event, error) {
	old, err := e.pendingTrade(s, pid, tradeID)
	if err != nil {
		return nil, err
	}
	if err := e.validateSide(s, old.To, offer); err != nil {
		return nil, err
	}
	if err := e.validateSide(s, old.From, want); err != nil {
		return nil, err
	}
	old.Status = TradeCountered

	s.TradeSeq++
	t := &Trade{
		ID:     s.TradeSeq,
		From:   old.To,
		To:     old.From,
		Offer:  offer,
		Want:   want,
		Status: TradePending,
	}
	e.snapshotBasis(s, t)
	s.Trade = t

	var evs []Event
	emit(s, &evs, "trade.countered", map[string]any{
		"tradeId": t.ID, "replaces": old.ID, "from": t.From, "to": t.To,
		"offerCash": offer.Cash, "offerSquares": offer.Squares, "offerJailCards": offer.JailCards,
		"wantCash": want.Cash, "wantSquares": want.Squares, "wantJailCards": want.JailCards,
	})
	s.AddLog("%s counters the trade", s.PlayerByID(t.From).Name)
	return evs, nil
}

// pendingTrade validates that pid is the recipient of the identified
// pending trade. The tradeID guard rejects responses raced against a
// counter-offer.
func (e *Engine) pendingTrade(s *State, pid int32, tradeID int64) (*Trade, error) {
	t := s.Trade
	if t == nil || t.Status != TradePending {
		return nil, codes.ErrTradeClosed
	}
	if t.ID != tradeID {
		return nil, codes.ErrTradeStale
	}
	if t.To != pid {
		return nil, codes.ErrNotYourTurn
	}
	return t, nil
}

// validateSide checks that owner can deliver the side: cash and jail cards
// in hand, every listed square owned and free of improvements.
func (e *Engine) validateSide(s *State, owner int32, side TradeSide) error {
	p := s.PlayerByID(owner)
	if side.Cash < 0 || side.Cash > p.Money {
		return codes.ErrInsufficientFunds
	}
	if side.JailCards < 0 || side.JailCards > p.JailCards {
		return codes.ErrIllegalTarget
	}
	for _, id := range side.Squares {
		q := s.SquareByID(id)
		if q == nil || !q.Type.Priced() {
			return codes.ErrIllegalTarget
		}
		if q.Owner != owner {
			return codes.ErrNotOwner
		}
		if q.Level > 0 {
			return codes.ErrIllegalTarget
		}
	}
	return nil
}

// snapshotBasis records funds and ownership of every referenced square at
// proposal time.
func (e *Engine) snapshotBasis(s *State, t *Trade) {
	t.BasisFromMoney = s.PlayerByID(t.From).Money
	t.BasisToMoney = s.PlayerByID(t.To).Money
	t.BasisOwners = make(map[int32]int32)
	for _, id := range t.Offer.Squares {
		t.BasisOwners[id] = s.SquareByID(id).Owner
	}
	for _, id := range t.Want.Squares {
		t.BasisOwners[id] = s.SquareByID(id).Owner
	}
}

// applySide moves one side's assets from giver to taker.
func (e *Engine) applySide(s *State, evs *[]Event, giver, taker *Player, side TradeSide) {
	if side.Cash > 0 {
		giver.Money -= side.Cash
		taker.Money += side.Cash
		emit(s, evs, "money.transfer", map[string]any{
			"from": giver.ID, "to": taker.ID, "amount": side.Cash, "reason": "trade",
		})
	}
	for _, id := range side.Squares {
		q := s.SquareByID(id)
		q.Owner = taker.ID
		emit(s, evs, "square.traded", map[string]any{
			"squareId": id, "from": giver.ID, "to": taker.ID,
		})
	}
	if side.JailCards > 0 {
		giver.JailCards -= side.JailCards
		taker.JailCards += side.JailCards
		emit(s, evs, "jail.cardTraded", map[string]any{
			"from": giver.ID, "to": taker.ID, "count": side.JailCards,
		})
	}
}

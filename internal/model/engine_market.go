package model

import (
	"github.com/gamehall/monopoly/pkg/codes"
)

// Buy purchases the square the current player just landed on at list price.
// A purchase the buyer cannot afford falls through to an auction rather
// than being rejected outright.
func (e *Engine) Buy(s *State, pid int32) ([]Event, error) {
	if err := e.requireTurn(s, pid); err != nil {
		return nil, err
	}
	if s.Phase != PhAwaitAction || s.PendingBuy < 0 {
		return nil, codes.ErrWrongPhase
	}
	q := s.SquareByID(s.PendingBuy)
	p := s.PlayerByID(pid)
	var evs []Event
	if p.Money < q.Price {
		s.AddLog("%s cannot afford %s, it goes to auction", p.Name, q.Name)
		e.openAuction(s, &evs, q.ID)
		return evs, nil
	}
	p.Money -= q.Price
	q.Owner = pid
	s.PendingBuy = -1
	s.Phase = PhAwaitRoll
	emit(s, &evs, "money.transfer", map[string]any{
		"from": pid, "to": Bank, "amount": q.Price, "reason": "purchase",
	})
	emit(s, &evs, "square.bought", map[string]any{
		"playerId": pid, "squareId": q.ID, "price": q.Price,
	})
	s.AddLog("%s buys %s for $%d", p.Name, q.Name, q.Price)
	e.finishRoll(s, &evs, false)
	return evs, nil
}

// Decline refuses the purchase and opens the auction window.
func (e *Engine) Decline(s *State, pid int32) ([]Event, error) {
	if err := e.requireTurn(s, pid); err != nil {
		return nil, err
	}
	if s.Phase != PhAwaitAction || s.PendingBuy < 0 {
		return nil, codes.ErrWrongPhase
	}
	q := s.SquareByID(s.PendingBuy)
	var evs []Event
	s.AddLog("%s declines %s, it goes to auction", s.PlayerByID(pid).Name, q.Name)
	e.openAuction(s, &evs, q.ID)
	return evs, nil
}

func (e *Engine) openAuction(s *State, evs *[]Event, squareID int32) {
	s.PendingBuy = -1
	s.Auction = &Auction{
		SquareID:   squareID,
		Bids:       make(map[int32]int64),
		Passed:     make(map[int32]bool),
		HighBidder: -1,
		Open:       true,
	}
	s.Phase = PhAuction
	emit(s, evs, "auction.opened", map[string]any{"squareId": squareID})
}

// Bid places or raises a bid. Any non-bankrupt player may bid, capped by
// cash in hand; each bid must beat the standing high bid.
func (e *Engine) Bid(s *State, pid int32, amount int64) ([]Event, error) {
	a := s.Auction
	if a == nil || !a.Open {
		return nil, codes.ErrAuctionClosed
	}
	p := s.PlayerByID(pid)
	if p == nil {
		return nil, codes.ErrPlayerNotFound
	}
	if p.Bankrupt {
		return nil, codes.ErrBankrupt
	}
	if a.Passed[pid] {
		return nil, codes.ErrAuctionClosed
	}
	if amount < a.HighBid+MinBid {
		return nil, codes.ErrBidTooLow
	}
	if amount > p.Money {
		return nil, codes.ErrInsufficientFunds
	}
	a.Bids[pid] = amount
	a.HighBid = amount
	a.HighBidder = pid
	var evs []Event
	emit(s, &evs, "auction.bid", map[string]any{"playerId": pid, "amount": amount})
	s.AddLog("%s bids $%d", p.Name, amount)
	e.closeAuctionIfDecided(s, &evs)
	return evs, nil
}

// PassAuction withdraws a player from the bidding; a pass is final.
func (e *Engine) PassAuction(s *State, pid int32) ([]Event, error) {
	a := s.Auction
	if a == nil || !a.Open {
		return nil, codes.ErrAuctionClosed
	}
	p := s.PlayerByID(pid)
	if p == nil {
		return nil, codes.ErrPlayerNotFound
	}
	if p.Bankrupt || a.Passed[pid] {
		return nil, codes.ErrAuctionClosed
	}
	a.Passed[pid] = true
	var evs []Event
	emit(s, &evs, "auction.pass", map[string]any{"playerId": pid})
	e.closeAuctionIfDecided(s, &evs)
	return evs, nil
}

// closeAuctionIfDecided settles early once no contest remains: everyone
// passed, or only the high bidder is still standing.
func (e *Engine) closeAuctionIfDecided(s *State, evs *[]Event) {
	a := s.Auction
	if a == nil || !a.Open {
		return
	}
	var active int
	for _, p := range s.Alive() {
		if !a.Passed[p.ID] {
			active++
		}
	}
	if active == 0 || (active == 1 && a.HighBidder >= 0 && !a.Passed[a.HighBidder]) {
		e.settleAuction(s, evs)
	}
}

// CloseAuction force-settles the auction; the actor calls it when the
// bidding window timer fires.
func (e *Engine) CloseAuction(s *State) ([]Event, error) {
	if s.Auction == nil || !s.Auction.Open {
		return nil, codes.ErrAuctionClosed
	}
	var evs []Event
	e.settleAuction(s, &evs)
	return evs, nil
}

// settleAuction awards the square to the high bidder at the high bid, or
// leaves it unowned when nobody bid, then resumes the interrupted turn.
func (e *Engine) settleAuction(s *State, evs *[]Event) {
	a := s.Auction
	a.Open = false
	q := s.SquareByID(a.SquareID)
	if a.HighBidder >= 0 && a.HighBid > 0 {
		// the bid was capped by cash when placed, but rent or fines may
		// have drained the winner since; charge handles that like any
		// other debt, down to bankruptcy
		w := s.PlayerByID(a.HighBidder)
		e.charge(s, evs, w, Bank, a.HighBid, "auction")
		if w.Bankrupt {
			emit(s, evs, "auction.closed", map[string]any{
				"squareId": q.ID, "winner": int32(-1), "amount": int64(0),
			})
			s.AddLog("%s could not pay for %s", w.Name, q.Name)
		} else {
			q.Owner = w.ID
			emit(s, evs, "auction.closed", map[string]any{
				"squareId": q.ID, "winner": w.ID, "amount": a.HighBid,
			})
			s.AddLog("%s wins the auction for %s at $%d", w.Name, q.Name, a.HighBid)
		}
	} else {
		emit(s, evs, "auction.closed", map[string]any{
			"squareId": q.ID, "winner": int32(-1), "amount": int64(0),
		})
		s.AddLog("nobody bid on %s", q.Name)
	}
	if s.Phase == PhGameOver {
		return
	}
	s.Auction = nil
	s.Phase = PhAwaitRoll
	e.finishRoll(s, evs, false)
}

// Build adds one improvement level to a property. Requires the full color
// group unmortgaged, level spread within the group of at most one, and cash
// in hand; the bank does not finance construction.
func (e *Engine) Build(s *State, pid, squareID int32) ([]Event, error) {
	if err := e.requireTurn(s, pid); err != nil {
		return nil, err
	}
	if s.Phase != PhAwaitRoll && s.Phase != PhAwaitAction {
		return nil, codes.ErrWrongPhase
	}
	q := s.SquareByID(squareID)
	if q == nil || q.Type != SqProperty {
		return nil, codes.ErrIllegalTarget
	}
	if q.Owner != pid {
		return nil, codes.ErrNotOwner
	}
	if !s.OwnsGroup(pid, q.Group) {
		return nil, codes.ErrGroupIncomplete
	}
	group := s.GroupSquares(q.Group)
	for _, g := range group {
		if g.Mortgaged {
			return nil, codes.ErrGroupMortgaged
		}
	}
	if q.Level >= MaxLevel {
		return nil, codes.ErrIllegalTarget
	}
	for _, g := range group {
		if q.Level+1-g.Level > 1 {
			return nil, codes.ErrGroupImbalance
		}
	}
	p := s.PlayerByID(pid)
	if p.Money < q.HouseCost {
		return nil, codes.ErrInsufficientFunds
	}
	p.Money -= q.HouseCost
	q.Level++
	var evs []Event
	emit(s, &evs, "money.transfer", map[string]any{
		"from": pid, "to": Bank, "amount": q.HouseCost, "reason": "build",
	})
	emit(s, &evs, "square.built", map[string]any{
		"playerId": pid, "squareId": q.ID, "level": q.Level,
	})
	s.AddLog("%s builds on %s (level %d)", p.Name, q.Name, q.Level)
	return evs, nil
}

// Sell removes one improvement level for half the build cost. Selling is
// allowed out of turn so that a player hit by a card charge can raise cash,
// but must come off a tallest square of the group.
func (e *Engine) Sell(s *State, pid, squareID int32) ([]Event, error) {
	p, q, err := e.ownedSquare(s, pid, squareID)
	if err != nil {
		return nil, err
	}
	if q.Type != SqProperty || q.Level <= 0 {
		return nil, codes.ErrIllegalTarget
	}
	for _, g := range s.GroupSquares(q.Group) {
		if g.Level > q.Level {
			return nil, codes.ErrGroupImbalance
		}
	}
	refund := q.HouseCost * RefundNum / RefundDen
	q.Level--
	p.Money += refund
	var evs []Event
	emit(s, &evs, "money.transfer", map[string]any{
		"from": Bank, "to": pid, "amount": refund, "reason": "sell",
	})
	emit(s, &evs, "square.sold", map[string]any{
		"playerId": pid, "squareId": q.ID, "level": q.Level,
	})
	s.AddLog("%s sells an improvement on %s", p.Name, q.Name)
	return evs, nil
}

// Mortgage pawns an unimproved square for half its price. Allowed out of
// turn for the same reason as Sell.
func (e *Engine) Mortgage(s *State, pid, squareID int32) ([]Event, error) {
	p, q, err := e.ownedSquare(s, pid, squareID)
	if err != nil {
		return nil, err
	}
	if q.Mortgaged || q.Level > 0 {
		return nil, codes.ErrIllegalTarget
	}
	v := q.MortgageValue()
	q.Mortgaged = true
	p.Money += v
	var evs []Event
	emit(s, &evs, "money.transfer", map[string]any{
		"from": Bank, "to": pid, "amount": v, "reason": "mortgage",
	})
	emit(s, &evs, "square.mortgaged", map[string]any{"playerId": pid, "squareId": q.ID})
	s.AddLog("%s mortgages %s for $%d", p.Name, q.Name, v)
	return evs, nil
}

// Unmortgage redeems a mortgaged square at the mortgage value plus 10%.
func (e *Engine) Unmortgage(s *State, pid, squareID int32) ([]Event, error) {
	p, q, err := e.ownedSquare(s, pid, squareID)
	if err != nil {
		return nil, err
	}
	if !q.Mortgaged {
		return nil, codes.ErrIllegalTarget
	}
	cost := q.RedeemCost()
	if p.Money < cost {
		return nil, codes.ErrInsufficientFunds
	}
	p.Money -= cost
	q.Mortgaged = false
	var evs []Event
	emit(s, &evs, "money.transfer", map[string]any{
		"from": pid, "to": Bank, "amount": cost, "reason": "unmortgage",
	})
	emit(s, &evs, "square.unmortgaged", map[string]any{"playerId": pid, "squareId": q.ID})
	s.AddLog("%s redeems %s for $%d", p.Name, q.Name, cost)
	return evs, nil
}

// ownedSquare validates the shared preconditions of asset-management
// actions that may run outside the owner's turn.
func (e *Engine) ownedSquare(s *State, pid, squareID int32) (*Player, *Square, error) {
	if s.Phase == PhGameOver {
		return nil, nil, codes.ErrWrongPhase
	}
	p := s.PlayerByID(pid)
	if p == nil {
		return nil, nil, codes.ErrPlayerNotFound
	}
	if p.Bankrupt {
		return nil, nil, codes.ErrBankrupt
	}
	q := s.SquareByID(squareID)
	if q == nil || !q.Type.Priced() {
		return nil, nil, codes.ErrIllegalTarget
	}
	if q.Owner != pid {
		return nil, nil, codes.ErrNotOwner
	}
	return p, q, nil
}

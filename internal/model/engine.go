package model

import (
	"time"

	"github.com/gamehall/monopoly/pkg/codes"
)

// Engine applies game actions to a State and returns the events each
// accepted action produced. It holds no game state of its own; the only
// injected collaborator is the dice/shuffle source, so a scripted roller
// makes every outcome reproducible.
type Engine struct {
	roller Roller
}

func NewEngine(r Roller) *Engine {
	return &Engine{roller: r}
}

func (e *Engine) Roller() Roller { return e.roller }

// emit appends one sequenced event.
func emit(s *State, evs *[]Event, typ string, payload map[string]any) {
	*evs = append(*evs, Event{Seq: s.nextSeq(), Type: typ, Payload: payload})
}

// AddPlayer appends a participant and assigns the next slot id. The first
// player to join holds the opening turn.
func (e *Engine) AddPlayer(s *State, name, color string, robot bool) (*Player, []Event, error) {
	if s.Phase == PhGameOver {
		return nil, nil, codes.ErrWrongPhase
	}
	if len(s.Players) >= MaxPlayers {
		return nil, nil, codes.ErrGameFull
	}
	p := &Player{
		ID:    int32(len(s.Players) + 1),
		Name:  name,
		Color: color,
		Money: StartingMoney,
		Robot: robot,
	}
	s.Players = append(s.Players, p)
	if s.Current < 0 {
		s.Current = p.ID
	}
	var evs []Event
	emit(s, &evs, "player.joined", map[string]any{
		"playerId": p.ID, "name": p.Name, "color": p.Color, "money": p.Money,
	})
	s.AddLog("%s joined", p.Name)
	return p, evs, nil
}

// RollDice is the entry of every turn. Jail rolls, doubles accounting,
// movement and square resolution all happen here; the turn auto-advances
// unless the roll left a decision open (buy window, auction, debt).
func (e *Engine) RollDice(s *State, pid int32) ([]Event, error) {
	if err := e.requireTurn(s, pid); err != nil {
		return nil, err
	}
	if s.Phase != PhAwaitRoll || s.Rolled {
		return nil, codes.ErrWrongPhase
	}
	p := s.PlayerByID(pid)

	d1, d2 := e.roller.Roll()
	s.Dice = [2]int32{d1, d2}
	s.Rolled = true
	s.ExtraRoll = false
	sum := d1 + d2
	double := d1 == d2

	var evs []Event
	emit(s, &evs, "dice.rolled", map[string]any{
		"playerId": pid, "d1": d1, "d2": d2, "double": double,
	})
	s.AddLog("%s rolled %d+%d", p.Name, d1, d2)

	if p.InJail {
		e.rollInJail(s, &evs, p, sum, double)
		return evs, nil
	}

	if double {
		s.Doubles++
		if s.Doubles >= MaxDoubles {
			s.AddLog("%s rolled three doubles and goes to jail", p.Name)
			e.sendToJail(s, &evs, p)
			e.finishRoll(s, &evs, true)
			return evs, nil
		}
		s.ExtraRoll = true
	} else {
		s.Doubles = 0
	}

	forfeit := e.movePlayer(s, &evs, p, sum, true)
	e.finishRoll(s, &evs, forfeit)
	return evs, nil
}

// rollInJail resolves a roll made from jail: a double escapes for free, the
// third failed attempt pays the fine and moves, anything else burns a turn.
func (e *Engine) rollInJail(s *State, evs *[]Event, p *Player, sum int32, double bool) {
	s.Doubles = 0
	switch {
	case double:
		p.InJail = false
		p.JailTurns = 0
		emit(s, evs, "jail.escaped", map[string]any{"playerId": p.ID, "fine": int64(0)})
		s.AddLog("%s rolled a double and leaves jail", p.Name)
		forfeit := e.movePlayer(s, evs, p, sum, true)
		e.finishRoll(s, evs, forfeit)
	case p.JailTurns+1 >= MaxJailTurns:
		p.InJail = false
		p.JailTurns = 0
		e.charge(s, evs, p, Bank, JailFine, "jail fine")
		if p.Bankrupt {
			e.finishRoll(s, evs, true)
			return
		}
		emit(s, evs, "jail.escaped", map[string]any{"playerId": p.ID, "fine": int64(JailFine)})
		s.AddLog("%s pays the $%d fine and leaves jail", p.Name, JailFine)
		forfeit := e.movePlayer(s, evs, p, sum, true)
		e.finishRoll(s, evs, forfeit)
	default:
		p.JailTurns++
		s.AddLog("%s stays in jail (%d/%d)", p.Name, p.JailTurns, MaxJailTurns)
		e.finishRoll(s, evs, false)
	}
}

// UseJailCard spends a get-out-of-jail card before rolling.
func (e *Engine) UseJailCard(s *State, pid int32) ([]Event, error) {
	if err := e.requireTurn(s, pid); err != nil {
		return nil, err
	}
	if s.Phase != PhAwaitRoll || s.Rolled {
		return nil, codes.ErrWrongPhase
	}
	p := s.PlayerByID(pid)
	if !p.InJail || p.JailCards <= 0 {
		return nil, codes.ErrWrongPhase
	}
	p.JailCards--
	p.InJail = false
	p.JailTurns = 0
	var evs []Event
	emit(s, &evs, "jail.escaped", map[string]any{"playerId": pid, "card": true})
	s.AddLog("%s uses a get-out-of-jail card", p.Name)
	return evs, nil
}

// EndTurn closes the current player's turn after the roll resolved. It is
// the explicit settle point: a negative balance blocks it until the player
// has mortgaged or sold enough, and it also waives a pending extra roll.
func (e *Engine) EndTurn(s *State, pid int32) ([]Event, error) {
	if err := e.requireTurn(s, pid); err != nil {
		return nil, err
	}
	if s.Phase != PhAwaitRoll || !s.Rolled {
		return nil, codes.ErrWrongPhase
	}
	p := s.PlayerByID(pid)
	if p.Money < 0 {
		return nil, codes.ErrDebtOutstanding
	}
	var evs []Event
	e.advanceTurn(s, &evs)
	return evs, nil
}

// finishRoll decides what the roll leaves behind: an open buy window or
// auction keeps the phase, unsettled debt or a granted extra roll keeps the
// turn, anything else advances to the next player.
func (e *Engine) finishRoll(s *State, evs *[]Event, forfeit bool) {
	if s.Phase == PhGameOver {
		return
	}
	cur := s.PlayerByID(s.Current)
	if cur == nil || cur.Bankrupt {
		e.advanceTurn(s, evs)
		return
	}
	if forfeit {
		e.advanceTurn(s, evs)
		return
	}
	if s.PendingBuy >= 0 || s.Auction != nil {
		return
	}
	if cur.Money < 0 {
		// stays the current player's turn until debt is settled or they
		// declare bankruptcy by running out of liquidity
		return
	}
	if s.ExtraRoll {
		s.ExtraRoll = false
		s.Rolled = false
		emit(s, evs, "turn.extraRoll", map[string]any{"playerId": cur.ID})
		return
	}
	e.advanceTurn(s, evs)
}

// advanceTurn hands the turn to the next non-bankrupt player.
func (e *Engine) advanceTurn(s *State, evs *[]Event) {
	if e.checkGameOver(s, evs) {
		return
	}
	next := s.NextAlive(s.Current)
	if next == nil {
		// current player is the sole survivor
		e.checkGameOver(s, evs)
		return
	}
	s.Current = next.ID
	s.Turn++
	s.Rolled = false
	s.ExtraRoll = false
	s.Doubles = 0
	s.Phase = PhAwaitRoll
	emit(s, evs, "turn.changed", map[string]any{"playerId": next.ID, "turn": s.Turn})
}

// movePlayer advances p by steps, paying the pass-go bonus when the walk
// wraps, then resolves the destination square. withBonus is false only for
// card moves that explicitly skip Go. Returns true when the landing forfeits
// the rest of the turn (go-to-jail).
func (e *Engine) movePlayer(s *State, evs *[]Event, p *Player, steps int32, withBonus bool) bool {
	from := p.Pos
	p.Pos = (p.Pos + steps + BoardSize) % BoardSize
	if withBonus && steps > 0 && from+steps >= BoardSize {
		e.payFromBank(s, evs, p, PassGoBonus, "pass go")
	}
	emit(s, evs, "player.moved", map[string]any{
		"playerId": p.ID, "from": from, "to": p.Pos,
	})
	return e.resolveSquare(s, evs, p, 0)
}

const maxCardChain = 4 // advance-to cards can land on another card square

// resolveSquare applies the effect of the square p stands on. Returns true
// when the turn is forfeited (player jailed or bankrupted).
func (e *Engine) resolveSquare(s *State, evs *[]Event, p *Player, depth int32) bool {
	if depth > maxCardChain {
		return false
	}
	q := s.Squares[p.Pos]
	switch q.Type {
	case SqProperty, SqRailroad, SqUtility:
		if !q.Owned() {
			s.PendingBuy = q.ID
			s.Phase = PhAwaitAction
			emit(s, evs, "buy.offered", map[string]any{
				"playerId": p.ID, "squareId": q.ID, "price": q.Price,
			})
			return false
		}
		if q.Owner == p.ID || q.Mortgaged {
			return false
		}
		owner := s.PlayerByID(q.Owner)
		if owner == nil || owner.Bankrupt {
			return false
		}
		rent := e.rentFor(s, q)
		s.AddLog("%s pays $%d rent to %s for %s", p.Name, rent, owner.Name, q.Name)
		e.charge(s, evs, p, owner.ID, rent, "rent")
		return p.Bankrupt
	case SqTax:
		s.AddLog("%s pays $%d %s", p.Name, q.Tax, q.Name)
		e.charge(s, evs, p, Bank, q.Tax, "tax")
		return p.Bankrupt
	case SqChance:
		return e.drawCard(s, evs, p, s.Chance, depth)
	case SqChest:
		return e.drawCard(s, evs, p, s.Chest, depth)
	case SqGoToJail:
		s.AddLog("%s is sent to jail", p.Name)
		e.sendToJail(s, evs, p)
		return true
	default:
		return false
	}
}

// rentFor computes the rent of an owned, unmortgaged square. Properties use
// the level-indexed table, railroads double per railroad held, utilities
// multiply the last dice sum.
func (e *Engine) rentFor(s *State, q *Square) int64 {
	switch q.Type {
	case SqProperty:
		return q.Rents[q.Level]
	case SqRailroad:
		n := s.OwnedCount(q.Owner, SqRailroad)
		if n < 1 {
			n = 1
		}
		if n > 4 {
			n = 4
		}
		return railroadRents[n-1]
	case SqUtility:
		sum := int64(s.Dice[0] + s.Dice[1])
		if s.OwnedCount(q.Owner, SqUtility) >= 2 {
			return sum * 10
		}
		return sum * 4
	}
	return 0
}

// drawCard pulls the next card and applies its effect, reshuffling via the
// injected roller when the deck cursor wraps.
func (e *Engine) drawCard(s *State, evs *[]Event, p *Player, d *Deck, depth int32) bool {
	card := d.Draw(func(n int) []int32 { return e.roller.Perm(n) })
	emit(s, evs, "card.drawn", map[string]any{
		"playerId": p.ID, "deck": string(d.Kind), "cardId": card.ID, "text": card.Text,
	})
	s.AddLog("%s draws: %s", p.Name, card.Text)

	switch card.Effect {
	case EffCollect:
		e.payFromBank(s, evs, p, card.Amount, "card")
	case EffPay:
		e.charge(s, evs, p, Bank, card.Amount, "card")
		return p.Bankrupt
	case EffMoveTo:
		return e.moveTo(s, evs, p, card.Target, depth)
	case EffMoveBack:
		from := p.Pos
		p.Pos = (p.Pos - int32(card.Amount) + BoardSize) % BoardSize
		emit(s, evs, "player.moved", map[string]any{
			"playerId": p.ID, "from": from, "to": p.Pos,
		})
		return e.resolveSquare(s, evs, p, depth+1)
	case EffGoToJail:
		e.sendToJail(s, evs, p)
		return true
	case EffJailCard:
		p.JailCards++
		emit(s, evs, "jail.cardGained", map[string]any{"playerId": p.ID})
	case EffCollectEach:
		for _, other := range s.Alive() {
			if other.ID == p.ID {
				continue
			}
			e.charge(s, evs, other, p.ID, card.Amount, "card")
		}
	case EffPayEach:
		for _, other := range s.Alive() {
			if other.ID == p.ID {
				continue
			}
			e.charge(s, evs, p, other.ID, card.Amount, "card")
			if p.Bankrupt {
				return true
			}
		}
	}
	return false
}

// moveTo teleports p to a card target, paying the bonus when the jump
// passes Go, then resolves the destination with the chain depth threaded.
func (e *Engine) moveTo(s *State, evs *[]Event, p *Player, target, depth int32) bool {
	steps := (target - p.Pos + BoardSize) % BoardSize
	if steps == 0 {
		steps = BoardSize
	}
	from := p.Pos
	p.Pos = target
	if from+steps >= BoardSize {
		e.payFromBank(s, evs, p, PassGoBonus, "pass go")
	}
	emit(s, evs, "player.moved", map[string]any{
		"playerId": p.ID, "from": from, "to": p.Pos,
	})
	return e.resolveSquare(s, evs, p, depth+1)
}

func (e *Engine) sendToJail(s *State, evs *[]Event, p *Player) {
	p.Pos = JailPos
	p.InJail = true
	p.JailTurns = 0
	s.Doubles = 0
	s.ExtraRoll = false
	emit(s, evs, "jail.entered", map[string]any{"playerId": p.ID})
}

// payFromBank credits p; the bank side is unbounded.
func (e *Engine) payFromBank(s *State, evs *[]Event, p *Player, amount int64, reason string) {
	if amount <= 0 {
		return
	}
	p.Money += amount
	emit(s, evs, "money.transfer", map[string]any{
		"from": Bank, "to": p.ID, "amount": amount, "reason": reason,
	})
}

// charge makes debtor pay creditor (Bank for bank-bound payments). The
// balance may go negative as long as the debtor could still raise the sum
// by selling and mortgaging; a payment beyond total liquidity bankrupts the
// debtor and hands the estate to the creditor.
func (e *Engine) charge(s *State, evs *[]Event, debtor *Player, creditor int32, amount int64, reason string) {
	if amount <= 0 || debtor.Bankrupt {
		return
	}
	if s.Liquidity(debtor.ID) < amount {
		e.declareBankrupt(s, evs, debtor, creditor)
		return
	}
	debtor.Money -= amount
	if creditor != Bank {
		if c := s.PlayerByID(creditor); c != nil && !c.Bankrupt {
			c.Money += amount
		}
	}
	emit(s, evs, "money.transfer", map[string]any{
		"from": debtor.ID, "to": creditor, "amount": amount, "reason": reason,
	})
}

// declareBankrupt reverts or transfers the whole estate. Against the bank
// every square returns to the market with improvements and mortgages
// cleared; against a player the creditor inherits squares as they stand,
// remaining cash and jail cards.
func (e *Engine) declareBankrupt(s *State, evs *[]Event, p *Player, creditor int32) {
	if p.Bankrupt {
		return
	}
	cashBefore := p.Money
	var squares []int32
	for _, q := range s.Squares {
		if q.Owner != p.ID {
			continue
		}
		squares = append(squares, q.ID)
		if creditor == Bank {
			q.Owner = Bank
			q.Level = 0
			q.Mortgaged = false
		} else {
			q.Owner = creditor
		}
	}
	if p.Money > 0 {
		if c := s.PlayerByID(creditor); c != nil && !c.Bankrupt {
			c.Money += p.Money
		}
		emit(s, evs, "money.transfer", map[string]any{
			"from": p.ID, "to": creditor, "amount": p.Money, "reason": "bankruptcy",
		})
	}
	if c := s.PlayerByID(creditor); c != nil && !c.Bankrupt {
		c.JailCards += p.JailCards
	}
	p.Money = 0
	p.JailCards = 0
	p.Bankrupt = true
	p.InJail = false

	// drop the bankrupt party out of any open window
	if s.PendingBuy >= 0 && s.Current == p.ID {
		s.PendingBuy = -1
	}
	if s.Auction != nil && s.Auction.Open {
		s.Auction.Passed[p.ID] = true
		if s.Auction.HighBidder == p.ID {
			s.Auction.HighBidder = -1
			s.Auction.HighBid = 0
		}
	}
	if s.Trade != nil && (s.Trade.From == p.ID || s.Trade.To == p.ID) {
		s.Trade.Status = TradeRejected
		s.Trade = nil
		if s.Phase == PhTrade {
			s.Phase = s.PrevPhase
		}
	}

	emit(s, evs, "player.bankrupt", map[string]any{
		"playerId": p.ID, "creditor": creditor, "squares": squares, "cashBefore": cashBefore,
	})
	s.AddLog("%s is bankrupt", p.Name)
	e.checkGameOver(s, evs)
}

// checkGameOver declares the winner once a single non-bankrupt player
// remains. Terminal: no action mutates state past this point.
func (e *Engine) checkGameOver(s *State, evs *[]Event) bool {
	if s.Phase == PhGameOver {
		return true
	}
	alive := s.Alive()
	if len(s.Players) < 2 || len(alive) != 1 {
		return false
	}
	s.Winner = alive[0].ID
	s.Phase = PhGameOver
	s.PendingBuy = -1
	s.Auction = nil
	s.Trade = nil
	emit(s, evs, "game.over", map[string]any{"winner": s.Winner})
	s.AddLog("%s wins", alive[0].Name)
	return true
}

// Resign lets a player quit for good: the estate reverts to the bank and
// the turn moves on when it was theirs. Distinct from a mere disconnect,
// which keeps the seat.
func (e *Engine) Resign(s *State, pid int32) ([]Event, error) {
	if s.Phase == PhGameOver {
		return nil, codes.ErrWrongPhase
	}
	p := s.PlayerByID(pid)
	if p == nil {
		return nil, codes.ErrPlayerNotFound
	}
	if p.Bankrupt {
		return nil, codes.ErrBankrupt
	}
	var evs []Event
	wasCurrent := s.Current == pid
	s.AddLog("%s resigned", p.Name)
	e.declareBankrupt(s, &evs, p, Bank)
	// an open auction or trade window settles on its own; otherwise the
	// departed player's turn moves on immediately
	if wasCurrent && (s.Phase == PhAwaitRoll || s.Phase == PhAwaitAction) {
		e.advanceTurn(s, &evs)
	}
	return evs, nil
}

// Chat appends a chat line; content is relayed, never interpreted.
func (e *Engine) Chat(s *State, pid int32, text string) ([]Event, error) {
	p := s.PlayerByID(pid)
	if p == nil {
		return nil, codes.ErrPlayerNotFound
	}
	s.AddChat(ChatMsg{PlayerID: pid, Name: p.Name, Text: text, At: time.Now()})
	var evs []Event
	emit(s, &evs, "chat", map[string]any{"playerId": pid, "name": p.Name, "text": text})
	return evs, nil
}

// requireTurn validates the common preconditions of turn-bound actions.
func (e *Engine) requireTurn(s *State, pid int32) error {
	if s.Phase == PhGameOver {
		return codes.ErrWrongPhase
	}
	p := s.PlayerByID(pid)
	if p == nil {
		return codes.ErrPlayerNotFound
	}
	if p.Bankrupt {
		return codes.ErrBankrupt
	}
	if s.Current != pid {
		return codes.ErrNotYourTurn
	}
	return nil
}

package model

import (
	"fmt"
	"time"

	"github.com/samber/lo"
)

const (
	maxLogEntries  = 256
	maxChatEntries = 128
)

// Player is the rules-engine view of one participant. Socket binding lives
// in the connection layer; absence of a socket never removes the player.
type Player struct {
	ID        int32  `json:"id"`
	Name      string `json:"name"`
	Color     string `json:"color"`
	Money     int64  `json:"money"` // may go negative transiently before bankruptcy resolution
	Pos       int32  `json:"pos"`
	InJail    bool   `json:"inJail"`
	JailTurns int32  `json:"jailTurns"`
	JailCards int32  `json:"jailCards"`
	Bankrupt  bool   `json:"bankrupt"`
	Robot     bool   `json:"robot"`
}

func (p *Player) Desc() string {
	return fmt.Sprintf("(%d %q $%d pos:%d jail:%v bankrupt:%v)",
		p.ID, p.Name, p.Money, p.Pos, p.InJail, p.Bankrupt)
}

// Auction tracks the fallback sale of one square. The bounded bidding window
// is enforced by the actor's timer; the engine only records bids and passes.
type Auction struct {
	SquareID   int32           `json:"squareId"`
	Bids       map[int32]int64 `json:"bids"`
	Passed     map[int32]bool  `json:"passed"`
	HighBid    int64           `json:"highBid"`
	HighBidder int32           `json:"highBidder"`
	Open       bool            `json:"open"`
}

// TradeSide names what one party gives: cash, squares and jail cards.
type TradeSide struct {
	Cash      int64   `json:"cash"`
	Squares   []int32 `json:"squares"`
	JailCards int32   `json:"jailCards"`
}

type TradeStatus string

const (
	TradePending   TradeStatus = "pending"
	TradeAccepted  TradeStatus = "accepted"
	TradeRejected  TradeStatus = "rejected"
	TradeCountered TradeStatus = "countered"
)

// Trade is a pending two-party exchange. The basis fields snapshot funds and
// ownership at proposal time so acceptance can detect stale offers.
type Trade struct {
	ID     int64       `json:"id"`
	From   int32       `json:"from"`
	To     int32       `json:"to"`
	Offer  TradeSide   `json:"offer"`
	Want   TradeSide   `json:"want"`
	Status TradeStatus `json:"status"`

	BasisFromMoney int64           `json:"basisFromMoney"`
	BasisToMoney   int64           `json:"basisToMoney"`
	BasisOwners    map[int32]int32 `json:"basisOwners"`
}

type ChatMsg struct {
	PlayerID int32     `json:"playerId"`
	Name     string    `json:"name"`
	Text     string    `json:"text"`
	At       time.Time `json:"at"`
}

// Event is one accepted mutation, exported to the persistence bridge with a
// per-game monotonically increasing sequence number.
type Event struct {
	Seq     int64          `json:"seq"`
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload,omitempty"`
}

// State is the canonical state of one game. Every field is exported so a
// snapshot is a plain JSON marshal of the struct.
type State struct {
	GameID  string    `json:"gameId"`
	Players []*Player `json:"players"`
	Squares []*Square `json:"squares"`
	Chance  *Deck     `json:"chance"`
	Chest   *Deck     `json:"chest"`

	Current   int32    `json:"current"` // always a non-bankrupt player once the game started
	Phase     Phase    `json:"phase"`
	Dice      [2]int32 `json:"dice"`
	Doubles   int32    `json:"doubles"`
	Turn      int32    `json:"turn"`
	Rolled    bool     `json:"rolled"`    // current player already rolled this turn
	ExtraRoll bool     `json:"extraRoll"` // doubles grant another roll after resolution

	PendingBuy int32    `json:"pendingBuy"` // square awaiting buy/decline, -1 none
	Auction    *Auction `json:"auction,omitempty"`
	Trade      *Trade   `json:"trade,omitempty"`
	PrevPhase  Phase    `json:"prevPhase"` // phase to resume after a trade window

	Seq      int64     `json:"seq"`
	TradeSeq int64     `json:"tradeSeq"`
	Winner   int32     `json:"winner"`
	Log      []string  `json:"log"`
	Chat     []ChatMsg `json:"chat"`
}

// NewState constructs the state on first reference to a game id: freshly
// shuffled decks, all squares unowned, no players yet.
func NewState(gameID string, r Roller) *State {
	return &State{
		GameID:     gameID,
		Squares:    NewBoard(),
		Chance:     NewDeck(DeckChance, r.Perm(deckSize(DeckChance))),
		Chest:      NewDeck(DeckChest, r.Perm(deckSize(DeckChest))),
		Current:    -1,
		Phase:      PhAwaitRoll,
		PendingBuy: -1,
		Winner:     -1,
	}
}

func (s *State) PlayerByID(id int32) *Player {
	for _, p := range s.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (s *State) SquareByID(id int32) *Square {
	if id < 0 || id >= BoardSize {
		return nil
	}
	return s.Squares[id]
}

// Alive returns the non-bankrupt players in join order.
func (s *State) Alive() []*Player {
	return lo.Filter(s.Players, func(p *Player, _ int) bool { return !p.Bankrupt })
}

// NextAlive returns the next non-bankrupt player after id in cyclic join
// order, or nil if none other exists.
func (s *State) NextAlive(id int32) *Player {
	n := len(s.Players)
	idx := -1
	for i, p := range s.Players {
		if p.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	for i := 1; i <= n; i++ {
		p := s.Players[(idx+i)%n]
		if !p.Bankrupt && p.ID != id {
			return p
		}
	}
	return nil
}

// OwnedCount counts squares of typ held by owner, used for railroad and
// utility rent multipliers.
func (s *State) OwnedCount(owner int32, typ SquareType) int32 {
	return int32(lo.CountBy(s.Squares, func(q *Square) bool {
		return q.Type == typ && q.Owner == owner
	}))
}

// GroupSquares returns every square of a color group.
func (s *State) GroupSquares(group string) []*Square {
	return lo.Filter(s.Squares, func(q *Square, _ int) bool {
		return q.Group == group && q.Type == SqProperty
	})
}

// OwnsGroup reports whether pid holds every property of the group.
func (s *State) OwnsGroup(pid int32, group string) bool {
	squares := s.GroupSquares(group)
	if len(squares) == 0 {
		return false
	}
	return lo.EveryBy(squares, func(q *Square) bool { return q.Owner == pid })
}

// AddLog appends one human-readable line to the bounded shared log.
func (s *State) AddLog(format string, args ...any) {
	s.Log = append(s.Log, fmt.Sprintf(format, args...))
	if len(s.Log) > maxLogEntries {
		s.Log = s.Log[len(s.Log)-maxLogEntries:]
	}
}

// AddChat appends one chat line to the bounded history.
func (s *State) AddChat(m ChatMsg) {
	s.Chat = append(s.Chat, m)
	if len(s.Chat) > maxChatEntries {
		s.Chat = s.Chat[len(s.Chat)-maxChatEntries:]
	}
}

func (s *State) nextSeq() int64 {
	s.Seq++
	return s.Seq
}

// Liquidity is the total cash a player could raise by selling every
// improvement and mortgaging every unmortgaged square they own, on top of
// cash in hand. A required payment above this triggers bankruptcy.
func (s *State) Liquidity(pid int32) int64 {
	p := s.PlayerByID(pid)
	if p == nil {
		return 0
	}
	total := p.Money
	for _, q := range s.Squares {
		if q.Owner != pid {
			continue
		}
		if q.Type == SqProperty && q.Level > 0 {
			total += int64(q.Level) * q.HouseCost * RefundNum / RefundDen
		}
		if !q.Mortgaged {
			total += q.MortgageValue()
		}
	}
	return total
}

// Clone deep-copies the state; used for snapshot export off the actor loop.
func (s *State) Clone() *State {
	c := *s
	c.Players = make([]*Player, len(s.Players))
	for i, p := range s.Players {
		cp := *p
		c.Players[i] = &cp
	}
	c.Squares = make([]*Square, len(s.Squares))
	for i, q := range s.Squares {
		c.Squares[i] = q.clone()
	}
	c.Chance = s.Chance.clone()
	c.Chest = s.Chest.clone()
	if s.Auction != nil {
		a := *s.Auction
		a.Bids = copyMap(s.Auction.Bids)
		a.Passed = copyMap(s.Auction.Passed)
		c.Auction = &a
	}
	if s.Trade != nil {
		t := *s.Trade
		t.Offer.Squares = append([]int32(nil), s.Trade.Offer.Squares...)
		t.Want.Squares = append([]int32(nil), s.Trade.Want.Squares...)
		t.BasisOwners = copyMap(s.Trade.BasisOwners)
		c.Trade = &t
	}
	c.Log = append([]string(nil), s.Log...)
	c.Chat = append([]ChatMsg(nil), s.Chat...)
	return &c
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	if m == nil {
		return nil
	}
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

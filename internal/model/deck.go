package model

// DeckKind names the two card decks.
type DeckKind string

const (
	DeckChance DeckKind = "chance"
	DeckChest  DeckKind = "community-chest"
)

// Deck is an immutable ordering of card ids plus a draw cursor. Drawing
// advances the cursor; exhausting the order swaps in a freshly shuffled
// sequence instead of mutating the old one, so snapshots and replays stay
// deterministic.
type Deck struct {
	Kind   DeckKind `json:"kind"`
	Order  []int32  `json:"order"`
	Cursor int      `json:"cursor"`
}

// NewDeck builds a deck over the full card set of kind using the supplied
// permutation of [0,n).
func NewDeck(kind DeckKind, perm []int32) *Deck {
	return &Deck{Kind: kind, Order: perm}
}

// Draw returns the card under the cursor. When the order is exhausted the
// reshuffle callback supplies a new permutation of deck ids.
func (d *Deck) Draw(reshuffle func(n int) []int32) Card {
	if d.Cursor >= len(d.Order) {
		d.Order = reshuffle(deckSize(d.Kind))
		d.Cursor = 0
	}
	id := d.Order[d.Cursor]
	d.Cursor++
	card, _ := CardByID(d.Kind, id)
	return card
}

func (d *Deck) clone() *Deck {
	return &Deck{
		Kind:   d.Kind,
		Order:  append([]int32(nil), d.Order...),
		Cursor: d.Cursor,
	}
}

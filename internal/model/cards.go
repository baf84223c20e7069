package model

// CardEffect enumerates what drawing a card does to the drawer.
type CardEffect int32

const (
	EffCollect   CardEffect = iota // collect Amount from the bank
	EffPay                         // pay Amount to the bank
	EffMoveTo                      // move to square Target, collecting the pass-go bonus when wrapping
	EffMoveBack                    // move back Amount squares, no bonus
	EffGoToJail                    // straight to jail, no bonus
	EffJailCard                    // gain a get-out-of-jail card
	EffCollectEach                 // collect Amount from every other non-bankrupt player
	EffPayEach                     // pay Amount to every other non-bankrupt player
)

// Card is one entry of a deck; decks reference cards by index so the deck
// order itself stays an immutable sequence of ids.
type Card struct {
	ID     int32      `json:"id"`
	Text   string     `json:"text"`
	Effect CardEffect `json:"effect"`
	Amount int64      `json:"amount,omitempty"`
	Target int32      `json:"target,omitempty"`
}

var chanceCards = []Card{
	{Text: "Advance to Go. Collect the bonus.", Effect: EffMoveTo, Target: 0},
	{Text: "Advance to Illinois Avenue.", Effect: EffMoveTo, Target: 24},
	{Text: "Advance to St. Charles Place.", Effect: EffMoveTo, Target: 11},
	{Text: "Take a trip to Reading Railroad.", Effect: EffMoveTo, Target: 5},
	{Text: "Advance to Boardwalk.", Effect: EffMoveTo, Target: 39},
	{Text: "Go back three spaces.", Effect: EffMoveBack, Amount: 3},
	{Text: "Go directly to jail. Do not pass Go.", Effect: EffGoToJail},
	{Text: "Get out of jail free.", Effect: EffJailCard},
	{Text: "Bank pays you dividend of $50.", Effect: EffCollect, Amount: 50},
	{Text: "Your building loan matures. Collect $150.", Effect: EffCollect, Amount: 150},
	{Text: "You have won a crossword competition. Collect $100.", Effect: EffCollect, Amount: 100},
	{Text: "Speeding fine. Pay $15.", Effect: EffPay, Amount: 15},
	{Text: "Pay poor tax of $15.", Effect: EffPay, Amount: 15},
	{Text: "You have been elected chairman of the board. Pay each player $50.", Effect: EffPayEach, Amount: 50},
}

var chestCards = []Card{
	{Text: "Advance to Go. Collect the bonus.", Effect: EffMoveTo, Target: 0},
	{Text: "Bank error in your favor. Collect $200.", Effect: EffCollect, Amount: 200},
	{Text: "Doctor's fees. Pay $50.", Effect: EffPay, Amount: 50},
	{Text: "From sale of stock you get $50.", Effect: EffCollect, Amount: 50},
	{Text: "Get out of jail free.", Effect: EffJailCard},
	{Text: "Go directly to jail. Do not pass Go.", Effect: EffGoToJail},
	{Text: "Holiday fund matures. Collect $100.", Effect: EffCollect, Amount: 100},
	{Text: "Income tax refund. Collect $20.", Effect: EffCollect, Amount: 20},
	{Text: "It is your birthday. Collect $10 from every player.", Effect: EffCollectEach, Amount: 10},
	{Text: "Life insurance matures. Collect $100.", Effect: EffCollect, Amount: 100},
	{Text: "Pay hospital fees of $100.", Effect: EffPay, Amount: 100},
	{Text: "Pay school fees of $50.", Effect: EffPay, Amount: 50},
	{Text: "You inherit $100.", Effect: EffCollect, Amount: 100},
	{Text: "You have won second prize in a beauty contest. Collect $10.", Effect: EffCollect, Amount: 10},
}

func init() {
	for i := range chanceCards {
		chanceCards[i].ID = int32(i)
	}
	for i := range chestCards {
		chestCards[i].ID = int32(i)
	}
}

// CardByID resolves a drawn card id against its deck kind.
func CardByID(kind DeckKind, id int32) (Card, bool) {
	var set []Card
	switch kind {
	case DeckChance:
		set = chanceCards
	case DeckChest:
		set = chestCards
	}
	if id < 0 || int(id) >= len(set) {
		return Card{}, false
	}
	return set[id], true
}

func deckSize(kind DeckKind) int {
	switch kind {
	case DeckChance:
		return len(chanceCards)
	case DeckChest:
		return len(chestCards)
	}
	return 0
}

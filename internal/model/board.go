package model

// Square is one board entry. Owner is Bank (0) while unowned; Level counts
// improvements for property squares, 5 meaning a hotel.
type Square struct {
	ID        int32      `json:"id"`
	Name      string     `json:"name"`
	Type      SquareType `json:"type"`
	Group     string     `json:"group,omitempty"`
	Price     int64      `json:"price,omitempty"`
	Rents     []int64    `json:"rents,omitempty"` // property: indexed by level 0..5
	HouseCost int64      `json:"houseCost,omitempty"`
	Tax       int64      `json:"tax,omitempty"`
	Level     int32      `json:"level"`
	Mortgaged bool       `json:"mortgaged"`
	Owner     int32      `json:"owner"`
}

func (q *Square) Owned() bool {
	return q.Owner != Bank
}

// MortgageValue is the cash advance for mortgaging, half the list price.
func (q *Square) MortgageValue() int64 {
	return q.Price * MortgageNum / MortgageDen
}

// RedeemCost is the mortgage value plus the fixed interest surcharge.
func (q *Square) RedeemCost() int64 {
	return q.MortgageValue() * InterestNum / InterestDen
}

func (q *Square) clone() *Square {
	c := *q
	c.Rents = append([]int64(nil), q.Rents...)
	return &c
}

type squareDef struct {
	name  string
	typ   SquareType
	group string
	price int64
	house int64
	tax   int64
	rents []int64
}

// Classic US board layout. Rent tables are indexed by improvement level
// (0 = bare lot .. 5 = hotel); railroad/utility rent is computed from
// ownership counts in the engine instead.
var boardDefs = [BoardSize]squareDef{
	{name: "Go", typ: SqGo},
	{name: "Mediterranean Avenue", typ: SqProperty, group: "brown", price: 60, house: 50, rents: []int64{2, 10, 30, 90, 160, 250}},
	{name: "Community Chest", typ: SqChest},
	{name: "Baltic Avenue", typ: SqProperty, group: "brown", price: 60, house: 50, rents: []int64{4, 20, 60, 180, 320, 450}},
	{name: "Income Tax", typ: SqTax, tax: 200},
	{name: "Reading Railroad", typ: SqRailroad, group: "railroad", price: 200},
	{name: "Oriental Avenue", typ: SqProperty, group: "lightblue", price: 100, house: 50, rents: []int64{6, 30, 90, 270, 400, 550}},
	{name: "Chance", typ: SqChance},
	{name: "Vermont Avenue", typ: SqProperty, group: "lightblue", price: 100, house: 50, rents: []int64{6, 30, 90, 270, 400, 550}},
	{name: "Connecticut Avenue", typ: SqProperty, group: "lightblue", price: 120, house: 50, rents: []int64{8, 40, 100, 300, 450, 600}},
	{name: "Just Visiting", typ: SqJustVisiting},
	{name: "St. Charles Place", typ: SqProperty, group: "pink", price: 140, house: 100, rents: []int64{10, 50, 150, 450, 625, 750}},
	{name: "Electric Company", typ: SqUtility, group: "utility", price: 150},
	{name: "States Avenue", typ: SqProperty, group: "pink", price: 140, house: 100, rents: []int64{10, 50, 150, 450, 625, 750}},
	{name: "Virginia Avenue", typ: SqProperty, group: "pink", price: 160, house: 100, rents: []int64{12, 60, 180, 500, 700, 900}},
	{name: "Pennsylvania Railroad", typ: SqRailroad, group: "railroad", price: 200},
	{name: "St. James Place", typ: SqProperty, group: "orange", price: 180, house: 100, rents: []int64{14, 70, 200, 550, 750, 950}},
	{name: "Community Chest", typ: SqChest},
	{name: "Tennessee Avenue", typ: SqProperty, group: "orange", price: 180, house: 100, rents: []int64{14, 70, 200, 550, 750, 950}},
	{name: "New York Avenue", typ: SqProperty, group: "orange", price: 200, house: 100, rents: []int64{16, 80, 220, 600, 800, 1000}},
	{name: "Free Parking", typ: SqFreeParking},
	{name: "Kentucky Avenue", typ: SqProperty, group: "red", price: 220, house: 150, rents: []int64{18, 90, 250, 700, 875, 1050}},
	{name: "Chance", typ: SqChance},
	{name: "Indiana Avenue", typ: SqProperty, group: "red", price: 220, house: 150, rents: []int64{18, 90, 250, 700, 875, 1050}},
	{name: "Illinois Avenue", typ: SqProperty, group: "red", price: 240, house: 150, rents: []int64{20, 100, 300, 750, 925, 1100}},
	{name: "B. & O. Railroad", typ: SqRailroad, group: "railroad", price: 200},
	{name: "Atlantic Avenue", typ: SqProperty, group: "yellow", price: 260, house: 150, rents: []int64{22, 110, 330, 800, 975, 1150}},
	{name: "Ventnor Avenue", typ: SqProperty, group: "yellow", price: 260, house: 150, rents: []int64{22, 110, 330, 800, 975, 1150}},
	{name: "Water Works", typ: SqUtility, group: "utility", price: 150},
	{name: "Marvin Gardens", typ: SqProperty, group: "yellow", price: 280, house: 150, rents: []int64{24, 120, 360, 850, 1025, 1200}},
	{name: "Go To Jail", typ: SqGoToJail},
	{name: "Pacific Avenue", typ: SqProperty, group: "green", price: 300, house: 200, rents: []int64{26, 130, 390, 900, 1100, 1275}},
	{name: "North Carolina Avenue", typ: SqProperty, group: "green", price: 300, house: 200, rents: []int64{26, 130, 390, 900, 1100, 1275}},
	{name: "Community Chest", typ: SqChest},
	{name: "Pennsylvania Avenue", typ: SqProperty, group: "green", price: 320, house: 200, rents: []int64{28, 150, 450, 1000, 1200, 1400}},
	{name: "Short Line", typ: SqRailroad, group: "railroad", price: 200},
	{name: "Chance", typ: SqChance},
	{name: "Park Place", typ: SqProperty, group: "darkblue", price: 350, house: 200, rents: []int64{35, 175, 500, 1100, 1300, 1500}},
	{name: "Luxury Tax", typ: SqTax, tax: 100},
	{name: "Boardwalk", typ: SqProperty, group: "darkblue", price: 400, house: 200, rents: []int64{50, 200, 600, 1400, 1700, 2000}},
}

// railroadRents is indexed by owned-count-1: base rent doubled once per
// additional railroad held by the same owner.
var railroadRents = [4]int64{25, 50, 100, 200}

// NewBoard returns a fresh 40-square board with every square unowned.
func NewBoard() []*Square {
	squares := make([]*Square, BoardSize)
	for i, d := range boardDefs {
		squares[i] = &Square{
			ID:        int32(i),
			Name:      d.name,
			Type:      d.typ,
			Group:     d.group,
			Price:     d.price,
			Rents:     append([]int64(nil), d.rents...),
			HouseCost: d.house,
			Tax:       d.tax,
			Owner:     Bank,
		}
	}
	return squares
}

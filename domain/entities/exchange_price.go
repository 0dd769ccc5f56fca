package entities

// ExchangePrice is the computed cost of acquiring a card, derived from the
// card's live popularity counters at request-creation time.
type ExchangePrice struct {
	CardID          int64
	BasePrice       int64
	PopularityBonus int64
	FinalPrice      int64
}

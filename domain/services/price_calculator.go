package services

import "cardex/domain/entities"

// PriceCalculator computes the coin cost of acquiring a card from its
// popularity counters. Pure: no state, no I/O. Prices are recomputed from the
// card's live counters at request-creation time, never cached.
type PriceCalculator struct{}

// NewPriceCalculator creates a new PriceCalculator
func NewPriceCalculator() *PriceCalculator {
	return &PriceCalculator{}
}

// Calculate returns the price breakdown for a card.
// Popularity bonus: +1 coin per 10 likes, +2 coins per completed exchange.
func (c *PriceCalculator) Calculate(card *entities.Card) *entities.ExchangePrice {
	bonus := card.LikeCount/10 + card.ExchangeCount*2
	return &entities.ExchangePrice{
		CardID:          card.ID,
		BasePrice:       card.BasePrice,
		PopularityBonus: bonus,
		FinalPrice:      card.BasePrice + bonus,
	}
}

package orders

// Pricer derives the order total. The amount is always recomputed from the
// current page count and copies; it is never edited directly.
type Pricer struct {
	PricePerPage int
}

// Amount returns totalPages x copies x pricePerPage.
func (p Pricer) Amount(totalPages, copies int) int {
	return totalPages * copies * p.PricePerPage
}

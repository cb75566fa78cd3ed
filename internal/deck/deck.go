package deck

import "math/rand"

// Deck represents a standard 52-card deck
type Deck struct {
	cards [52]Card
	next  int
	rng   *rand.Rand
}

// New creates a new shuffled deck with explicit RNG
func New(rng *rand.Rand) *Deck {
	d := &Deck{rng: rng}

	i := 0
	for rank := Two; rank <= Ace; rank++ {
		for suit := Hearts; suit <= Spades; suit++ {
			d.cards[i] = NewCard(rank, suit)
			i++
		}
	}

	d.Shuffle()
	return d
}

// NewOrdered creates an unshuffled deck in a fixed rank-major order.
// Used by tests that need deterministic deals.
func NewOrdered() *Deck {
	d := &Deck{}
	i := 0
	for rank := Two; rank <= Ace; rank++ {
		for suit := Hearts; suit <= Spades; suit++ {
			d.cards[i] = NewCard(rank, suit)
			i++
		}
	}
	return d
}

// NewStacked creates a deck that deals the given cards first, in order,
// followed by the remaining cards. Used by tests.
func NewStacked(top []Card) *Deck {
	d := &Deck{}
	used := make(map[Card]bool, len(top))
	i := 0
	for _, c := range top {
		d.cards[i] = c
		used[c] = true
		i++
	}
	for rank := Two; rank <= Ace; rank++ {
		for suit := Hearts; suit <= Spades; suit++ {
			c := NewCard(rank, suit)
			if !used[c] {
				d.cards[i] = c
				i++
			}
		}
	}
	return d
}

// Shuffle shuffles the remaining deck using Fisher-Yates
func (d *Deck) Shuffle() {
	d.next = 0
	for i := len(d.cards) - 1; i > 0; i-- {
		var j int
		if d.rng != nil {
			j = d.rng.Intn(i + 1)
		} else {
			j = rand.Intn(i + 1)
		}
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
}

// Deal deals n cards from the top of the deck. Returns nil if the deck
// does not hold n more cards.
func (d *Deck) Deal(n int) []Card {
	if d.next+n > len(d.cards) {
		return nil
	}
	cards := make([]Card, n)
	copy(cards, d.cards[d.next:d.next+n])
	d.next += n
	return cards
}

// DealOne deals a single card from the deck
func (d *Deck) DealOne() (Card, bool) {
	if d.next >= len(d.cards) {
		return Card{}, false
	}
	card := d.cards[d.next]
	d.next++
	return card, true
}

// CardsRemaining returns the number of cards left in the deck
func (d *Deck) CardsRemaining() int {
	return len(d.cards) - d.next
}

// Clone returns a copy of the deck sharing no state with the original.
// The clone does not carry the RNG; a dealt-from clone never reshuffles.
func (d *Deck) Clone() *Deck {
	clone := &Deck{next: d.next}
	clone.cards = d.cards
	return clone
}

package state

import "sync"

// CardState is where a job card is in the delete flow:
// Idle -> Confirming -> Deleting -> Idle, with Confirming -> Idle on cancel.
type CardState int

const (
	CardIdle CardState = iota
	CardConfirming
	CardDeleting
)

func (s CardState) String() string {
	switch s {
	case CardConfirming:
		return "confirming"
	case CardDeleting:
		return "deleting"
	default:
		return "idle"
	}
}

type Card struct {
	State CardState
	// Err is the message from the last failed delete, shown in the modal.
	Err string
}

// Cards tracks delete-flow state per job id. Idle cards are not stored.
type Cards struct {
	mu sync.Mutex
	m  map[int64]Card
}

func NewCards() *Cards {
	return &Cards{m: make(map[int64]Card)}
}

func (c *Cards) Get(id int64) Card {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.m[id]
}

// Confirm opens the confirmation for id.
func (c *Cards) Confirm(id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cur := c.m[id]
	switch cur.State {
	case CardDeleting:
		return ErrDeleteInProgress
	case CardConfirming:
		return nil
	}
	c.m[id] = Card{State: CardConfirming}
	return nil
}

// Cancel closes the confirmation. A delete already in flight cannot be cancelled.
func (c *Cards) Cancel(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.m[id].State == CardConfirming {
		delete(c.m, id)
	}
}

// Begin moves a confirming card to deleting. Only one caller wins per id.
func (c *Cards) Begin(id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.m[id].State {
	case CardDeleting:
		return ErrDeleteInProgress
	case CardIdle:
		return ErrNotConfirming
	}
	c.m[id] = Card{State: CardDeleting}
	return nil
}

// Finish ends a delete. On failure the card goes back to confirming with
// the message so the user can retry or cancel.
func (c *Cards) Finish(id int64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.m[id].State != CardDeleting {
		return
	}
	if err != nil {
		c.m[id] = Card{State: CardConfirming, Err: Message(err)}
		return
	}
	delete(c.m, id)
}

// prune drops non-deleting cards whose job is gone.
func (c *Cards) prune(present map[int64]bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, card := range c.m {
		if card.State != CardDeleting && !present[id] {
			delete(c.m, id)
		}
	}
}

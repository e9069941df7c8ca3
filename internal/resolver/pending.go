package resolver

import "github.com/alexanderramin/planmigrate/internal/domain"

// Pending is the set of a plan's suites that still need migrating, in
// source order. The root suite is never pending.
type Pending struct {
	order   []int
	present map[int]bool
	cursor  int
}

// NewPending builds the pending set from a plan's suites.
func NewPending(suites []domain.Suite) *Pending {
	p := &Pending{present: make(map[int]bool, len(suites))}
	for i := range suites {
		s := &suites[i]
		if s.IsRoot() || p.present[s.ID] {
			continue
		}
		p.order = append(p.order, s.ID)
		p.present[s.ID] = true
	}
	return p
}

// Next returns the first remaining suite in source order without removing it.
func (p *Pending) Next() (int, bool) {
	for p.cursor < len(p.order) {
		id := p.order[p.cursor]
		if p.present[id] {
			return id, true
		}
		p.cursor++
	}
	return 0, false
}

// Remove drops id from the set. Removing an absent id is a no-op.
func (p *Pending) Remove(id int) {
	delete(p.present, id)
}

func (p *Pending) Contains(id int) bool {
	return p.present[id]
}

func (p *Pending) Len() int {
	return len(p.present)
}

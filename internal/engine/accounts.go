package engine

import "fmt"

// Broker holds a trading participant's credit balance. Credit never goes
// negative; overdrawing is caller misuse and panics. All mutation happens
// through the owning Registry during a matching attempt.
type Broker struct {
	ID     int64
	credit int64
}

func NewBroker(id int64, credit int64) *Broker {
	return &Broker{ID: id, credit: credit}
}

func (b *Broker) Credit() int64 {
	return b.credit
}

func (b *Broker) HasEnoughCredit(amount int64) bool {
	return b.credit >= amount
}

func (b *Broker) IncreaseCredit(amount int64) {
	b.credit += amount
}

func (b *Broker) DecreaseCredit(amount int64) {
	if amount > b.credit {
		panic(fmt.Sprintf("broker %d: credit decrease %d exceeds balance %d", b.ID, amount, b.credit))
	}
	b.credit -= amount
}

// Shareholder holds per-security positions. A position never goes negative.
type Shareholder struct {
	ID        int64
	positions map[string]int
}

func NewShareholder(id int64) *Shareholder {
	return &Shareholder{ID: id, positions: make(map[string]int)}
}

func (s *Shareholder) PositionOn(securityID string) int {
	return s.positions[securityID]
}

// HasEnoughPositionsOn reports whether the held position covers the given
// committed sell quantity.
func (s *Shareholder) HasEnoughPositionsOn(securityID string, required int) bool {
	return s.positions[securityID] >= required
}

func (s *Shareholder) IncPosition(securityID string, amount int) {
	s.positions[securityID] += amount
}

func (s *Shareholder) DecPosition(securityID string, amount int) {
	held := s.positions[securityID]
	if amount > held {
		panic(fmt.Sprintf("shareholder %d: position decrease %d exceeds holding %d on %s", s.ID, amount, held, securityID))
	}
	s.positions[securityID] = held - amount
}

// Registry owns every broker, shareholder and security in the venue. Orders
// reference these entities by id; all balance and position mutation goes
// through the registry's entities so every order observes current state.
type Registry struct {
	brokers      map[int64]*Broker
	shareholders map[int64]*Shareholder
	securities   map[string]*Security
}

func NewRegistry() *Registry {
	return &Registry{
		brokers:      make(map[int64]*Broker),
		shareholders: make(map[int64]*Shareholder),
		securities:   make(map[string]*Security),
	}
}

func (r *Registry) AddBroker(b *Broker)           { r.brokers[b.ID] = b }
func (r *Registry) AddShareholder(s *Shareholder) { r.shareholders[s.ID] = s }
func (r *Registry) AddSecurity(s *Security)       { r.securities[s.ID] = s }

// Broker returns the broker with the given id, or nil.
func (r *Registry) Broker(id int64) *Broker {
	return r.brokers[id]
}

// Shareholder returns the shareholder with the given id, or nil.
func (r *Registry) Shareholder(id int64) *Shareholder {
	return r.shareholders[id]
}

// Security returns the security with the given id, or nil.
func (r *Registry) Security(id string) *Security {
	return r.securities[id]
}

// Securities returns all registered securities.
func (r *Registry) Securities() []*Security {
	out := make([]*Security, 0, len(r.securities))
	for _, s := range r.securities {
		out = append(out, s)
	}
	return out
}

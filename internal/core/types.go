package core

// StateID is a cell state. It doubles as a rule-table row index.
type StateID uint8

// NeighborCount is the number of Moore neighbours in the on-state (0..8). It
// doubles as a rule-table column index.
type NeighborCount uint8

const (
	// MaxStates bounds the number of rule-table rows a StateID can address.
	MaxStates = 256
	// Neighborhood is the size of the Moore neighbourhood and therefore the
	// largest NeighborCount.
	Neighborhood = 8
	// TableColumns is the number of rule-table columns, one per count 0..8.
	TableColumns = Neighborhood + 1
)

// ToNeighborCount converts a raw tally into a NeighborCount, reporting false
// when the value falls outside 0..8.
func ToNeighborCount(n int) (NeighborCount, bool) {
	if n < 0 || n > Neighborhood {
		return 0, false
	}
	return NeighborCount(n), true
}

// Size describes the dimensions of a simulation grid.
type Size struct {
	Rows int
	Cols int
}

// RuleFactory constructs a rule table using an optional configuration map.
type RuleFactory func(cfg map[string]string) (*Table, error)

var rules = map[string]RuleFactory{}

// Register adds a rule-table factory under the provided name.
func Register(name string, f RuleFactory) {
	if name == "" || f == nil {
		return
	}
	rules[name] = f
}

// Rules exposes the registry of available rule-table factories.
func Rules() map[string]RuleFactory {
	return rules
}

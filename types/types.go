package types

// State is the freshness of a cache entry.
type State string

const (
	// Fresh entries are served as-is.
	Fresh State = "fresh"
	// Stale entries keep their value but are refetched on the next read.
	Stale State = "stale"
)

// Action is one of the three corrective actions a mutation can have on the cache.
type Action string

const (
	Update     Action = "update"     // overwrite one exact key in place
	Invalidate Action = "invalidate" // mark matching entries stale
	Remove     Action = "remove"     // evict matching entries
)

// Actions lists every action in the order they are applied.
var Actions = []Action{Update, Invalidate, Remove}

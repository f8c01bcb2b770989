// Package workload defines the work items the dispatch loop consumes and a
// producer that fills the shared queue with a synthetic get/put/delete mix.
package workload

// ItemKind discriminates the work-item union.
type ItemKind int

const (
	// ItemRequest carries one backend operation.
	ItemRequest ItemKind = iota

	// ItemReconnect asks the consumer to cycle its connection. The dispatch
	// loop currently treats it as a no-op; the kind is reserved so producers
	// may emit it without breaking consumers.
	ItemReconnect
)

// OpKind identifies a backend operation. The dispatch loop supports the
// key-value subset; the remaining kinds are defined so their items are
// recognized and counted as unsupported instead of tearing down a worker.
type OpKind int

const (
	OpGet OpKind = iota
	OpPut
	OpDelete

	// Reserved operation kinds outside the key-value subset.
	OpIncr
	OpExpire
)

// String returns the metric label for the operation kind.
func (k OpKind) String() string {
	switch k {
	case OpGet:
		return "get"
	case OpPut:
		return "put"
	case OpDelete:
		return "delete"
	case OpIncr:
		return "incr"
	case OpExpire:
		return "expire"
	default:
		return "unknown"
	}
}

// Operation is one backend request. Value is only set for OpPut.
type Operation struct {
	Kind  OpKind
	Key   string
	Value []byte
}

// Item is the unit of work delivered to exactly one worker. Immutable once
// queued.
type Item struct {
	Kind ItemKind
	Op   Operation
}

// Request wraps an operation as a queueable item.
func Request(op Operation) Item {
	return Item{Kind: ItemRequest, Op: op}
}

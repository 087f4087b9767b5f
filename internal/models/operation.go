package models

import "fmt"

// OpKind is the kind of change an [Operation] makes to a remote container.
type OpKind int

const (
	OpCreate OpKind = iota
	OpUpdate
	OpDelete
)

func (k OpKind) String() string {
	switch k {
	case OpCreate:
		return "create"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	default:
		return fmt.Sprintf("OpKind(%d)", int(k))
	}
}

// MarshalText renders the kind by name in JSON and YAML output.
func (k OpKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Operation is one derived change. ID is the remote id for updates and deletes and 0 for creates.
// Key is the correlation key value, empty in no-key mode.
type Operation struct {
	Kind   OpKind `json:"kind" yaml:"kind"`
	ID     int64  `json:"id,omitempty" yaml:"id,omitempty"`
	Key    string `json:"key,omitempty" yaml:"key,omitempty"`
	Values Row    `json:"values,omitempty" yaml:"values,omitempty"`
}

// Plan is the ordered set of operations computed for one container.
//
// Creates and updates follow dataset row order; deletes follow remote listing order.
type Plan struct {
	Target  string      `json:"target" yaml:"target"`
	Columns []string    `json:"columns" yaml:"columns"`
	Creates []Operation `json:"creates" yaml:"creates"`
	Updates []Operation `json:"updates" yaml:"updates"`
	Deletes []Operation `json:"deletes" yaml:"deletes"`
}

// Len returns the total number of operations.
func (p *Plan) Len() int {
	return len(p.Creates) + len(p.Updates) + len(p.Deletes)
}

// IsEmpty reports whether the plan changes nothing.
func (p *Plan) IsEmpty() bool { return p.Len() == 0 }

// Operations returns every operation in execution order: creates, updates, then deletes.
func (p *Plan) Operations() []Operation {
	ops := make([]Operation, 0, p.Len())
	ops = append(ops, p.Creates...)
	ops = append(ops, p.Updates...)
	return append(ops, p.Deletes...)
}

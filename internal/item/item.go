// Package item defines the data carried between workflow nodes: nested
// records, binary payloads, and the paired-item lineage annotations.
package item

import "encoding/json"

// Record is a recursively nested key/value tree. Values are scalars, nil,
// nested Records, or arrays thereof.
type Record = map[string]any

// Binary holds a binary payload travelling alongside a record. The engine
// carries it intact and never inspects the content.
type Binary struct {
	Data     []byte `json:"data"`
	MIMEType string `json:"mimeType"`
	FileName string `json:"fileName,omitempty"`
}

// Source records which input item produced a given output item.
type Source struct {
	SourceIndex int `json:"sourceIndex"`
	InputPort   int `json:"inputPort"`
}

// Item is a single unit of data on a port.
type Item struct {
	JSON       Record            `json:"json"`
	Binary     map[string]Binary `json:"binary,omitempty"`
	PairedItem *Source           `json:"pairedItem,omitempty"`
}

// NewItem returns an item wrapping the given record.
func NewItem(r Record) Item {
	return Item{JSON: r}
}

// Paired returns a copy of the item annotated with its lineage.
func (it Item) Paired(sourceIndex, inputPort int) Item {
	it.PairedItem = &Source{SourceIndex: sourceIndex, InputPort: inputPort}
	return it
}

// PortValue is what a port holds: internally always an array of items, with
// a flag remembering whether the producer handed over a single record so the
// caller-visible shape can be restored on read.
type PortValue struct {
	items  []Item
	single bool
}

// Single wraps one item, remembering the single-record shape.
func Single(it Item) PortValue {
	return PortValue{items: []Item{it}, single: true}
}

// Collection wraps a slice of items.
func Collection(items []Item) PortValue {
	return PortValue{items: items}
}

// Empty returns a port value with no items.
func Empty() PortValue {
	return PortValue{}
}

// FromAny normalizes a caller-provided value into a PortValue. Accepted
// shapes: Record, []Record, Item, []Item, []any of records.
func FromAny(v any) PortValue {
	switch t := v.(type) {
	case nil:
		return Empty()
	case PortValue:
		return t
	case Item:
		return Single(t)
	case []Item:
		return Collection(t)
	case Record:
		return Single(NewItem(t))
	case []Record:
		items := make([]Item, 0, len(t))
		for _, r := range t {
			items = append(items, NewItem(r))
		}
		return Collection(items)
	case []any:
		items := make([]Item, 0, len(t))
		for _, e := range t {
			if r, ok := e.(Record); ok {
				items = append(items, NewItem(r))
			}
		}
		return Collection(items)
	default:
		return Empty()
	}
}

// Items returns the normalized item array.
func (v PortValue) Items() []Item { return v.items }

// Len returns the number of items.
func (v PortValue) Len() int { return len(v.items) }

// At returns the item at index i.
func (v PortValue) At(i int) Item { return v.items[i] }

// IsSingle reports whether the producer emitted a single record.
func (v PortValue) IsSingle() bool { return v.single && len(v.items) == 1 }

// Value restores the caller-visible shape: the lone item for single-record
// outputs, the item slice otherwise.
func (v PortValue) Value() any {
	if v.IsSingle() {
		return v.items[0]
	}
	return v.items
}

// WithDefaultPairing returns a port value whose items all carry a lineage
// annotation, assigning sourceIndex = item index on port 0 where absent.
func (v PortValue) WithDefaultPairing() PortValue {
	out := make([]Item, len(v.items))
	for i, it := range v.items {
		if it.PairedItem == nil {
			it.PairedItem = &Source{SourceIndex: i, InputPort: 0}
		}
		out[i] = it
	}
	return PortValue{items: out, single: v.single}
}

// MarshalJSON encodes the caller-visible shape.
func (v PortValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Value())
}

// UnmarshalJSON decodes either a single item or an item array.
func (v *PortValue) UnmarshalJSON(data []byte) error {
	var items []Item
	if err := json.Unmarshal(data, &items); err == nil {
		*v = Collection(items)
		return nil
	}
	var it Item
	if err := json.Unmarshal(data, &it); err != nil {
		return err
	}
	*v = Single(it)
	return nil
}

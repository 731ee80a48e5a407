package cdr

// Code enumerates the CDR primitive and constructed type codes RTPS §8.2
// requires a registered topic's field tree to express.
type Code int

const (
	TCBoolean Code = iota
	TCOctet
	TCChar
	TCShort
	TCUShort
	TCLong
	TCULong
	TCLongLong
	TCULongLong
	TCFloat
	TCDouble
	TCLongDouble
	TCString   // bounded if Bound != 0, unbounded otherwise.
	TCStruct
	TCUnion
	TCEnum
	TCSequence // bounded if Bound != 0, unbounded otherwise.
	TCArray    // Bound is the fixed element count.
	TCTypeRef  // named reference to another registered Type, resolved by name.
)

// Field describes one member of a struct or union type, carrying the
// @Key/@ID/@Extensibility-adjacent annotations RTPS §8.2 names.
type Field struct {
	Name  string
	Type  *Type
	ID    ParamID // explicit @ID, used as the wire parameter id under Mutable.
	Key   bool    // @Key: participates in instance-key hashing.
	Union bool    // marks a TCUnion member; the wire discriminator is the member's index in Fields.
}

// Type is a node in a registered topic's field tree.
type Type struct {
	Code          Code
	Name          string // struct/union/enum/typeref name.
	Bound         int    // element count (array) or max length (bounded string/sequence).
	Element       *Type  // sequence/array element type.
	Fields        []Field
	Extensibility Extensibility
}

// IsPrimitive reports whether t has no nested structure to recurse into.
func (t *Type) IsPrimitive() bool {
	switch t.Code {
	case TCStruct, TCUnion, TCSequence, TCArray, TCTypeRef:
		return false
	default:
		return true
	}
}

// KeyFields returns the subset of Fields marked @Key, in declaration
// order; the publisher and subscriber use it to tell keyed topics from
// keyless ones.
func (t *Type) KeyFields() []Field {
	var out []Field
	for _, f := range t.Fields {
		if f.Key {
			out = append(out, f)
		}
	}
	return out
}

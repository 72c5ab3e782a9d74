package object

import "strings"

// kindRank fixes the total order over value kinds used when operands of a
// comparison have different kinds. The language never errors on
// heterogeneous comparisons; this order is observable behavior:
//
//	Null < Number < String < Boolean < Array < NameRef < Function < Object
func kindRank(v Value) int {
	switch v.(type) {
	case *Null:
		return 0
	case *Number:
		return 1
	case *String:
		return 2
	case *Boolean:
		return 3
	case *Array:
		return 4
	case *NameRef:
		return 5
	case *Function:
		return 6
	case *Object:
		return 7
	}
	return 8
}

// Equals reports structural, variant-aware equality. Values of different
// kinds are never equal; a Number never equals a String.
func Equals(a, b Value) bool {
	switch av := a.(type) {
	case *Null:
		_, ok := b.(*Null)
		return ok

	case *Number:
		bv, ok := b.(*Number)
		return ok && av.Value == bv.Value

	case *String:
		bv, ok := b.(*String)
		return ok && av.Value == bv.Value

	case *Boolean:
		bv, ok := b.(*Boolean)
		return ok && av.Value == bv.Value

	case *Array:
		bv, ok := b.(*Array)
		if !ok || len(av.Elements) != len(bv.Elements) {
			return false
		}
		for i, el := range av.Elements {
			if !Equals(el, bv.Elements[i]) {
				return false
			}
		}
		return true

	case *NameRef:
		bv, ok := b.(*NameRef)
		return ok && av.Name == bv.Name

	case *Function:
		bv, ok := b.(*Function)
		if !ok || av.Name != bv.Name || len(av.Parameters) != len(bv.Parameters) {
			return false
		}
		for i, p := range av.Parameters {
			if p.Name != bv.Parameters[i].Name {
				return false
			}
		}
		return av.Body == bv.Body

	case *Object:
		bv, ok := b.(*Object)
		if !ok || len(av.Members) != len(bv.Members) {
			return false
		}
		for k, v := range av.Members {
			bm, ok := bv.Members[k]
			if !ok || !Equals(v, bm) {
				return false
			}
		}
		return true
	}

	return a == b
}

// Compare orders two values for <, >, <=, >=. Same-kind values compare
// structurally; values of different kinds fall back to the fixed kind order.
func Compare(a, b Value) int {
	ra, rb := kindRank(a), kindRank(b)
	if ra != rb {
		return cmpInt(ra, rb)
	}

	switch av := a.(type) {
	case *Null:
		return 0

	case *Number:
		bv := b.(*Number)
		switch {
		case av.Value < bv.Value:
			return -1
		case av.Value > bv.Value:
			return 1
		}
		return 0

	case *String:
		return strings.Compare(av.Value, b.(*String).Value)

	case *Boolean:
		return cmpInt(boolRank(av.Value), boolRank(b.(*Boolean).Value))

	case *Array:
		bv := b.(*Array)
		for i := 0; i < len(av.Elements) && i < len(bv.Elements); i++ {
			if c := Compare(av.Elements[i], bv.Elements[i]); c != 0 {
				return c
			}
		}
		return cmpInt(len(av.Elements), len(bv.Elements))

	case *NameRef:
		return strings.Compare(av.Name, b.(*NameRef).Name)

	case *Function:
		bv := b.(*Function)
		if c := cmpInt(len(av.Parameters), len(bv.Parameters)); c != 0 {
			return c
		}
		return strings.Compare(av.Name, bv.Name)

	case *Object:
		// objects order by property count
		return cmpInt(len(av.Members), len(b.(*Object).Members))
	}

	return 0
}

// Clone returns a deep copy of v. Arrays and objects copy their contents;
// the remaining variants are immutable and are returned as-is.
func Clone(v Value) Value {
	switch val := v.(type) {
	case *Array:
		elements := make([]Value, len(val.Elements))
		for i, el := range val.Elements {
			elements[i] = Clone(el)
		}
		return &Array{Elements: elements}

	case *Object:
		members := make(map[string]Value, len(val.Members))
		for k, m := range val.Members {
			members[k] = Clone(m)
		}
		return &Object{Members: members}
	}

	return v
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}

package object

import (
	"bytes"
	"gem/internal/ast"
	"io"
	"sort"
	"strconv"
	"strings"
)

const (
	NULL_OBJ    = "NULL"
	NUMBER_OBJ  = "NUMBER"
	STRING_OBJ  = "STRING"
	BOOLEAN_OBJ = "BOOLEAN"

	ARRAY_OBJ    = "ARRAY"
	NAME_OBJ     = "NAME"
	FUNCTION_OBJ = "FUNCTION"
	OBJECT_OBJ   = "OBJECT"

	BUILTIN_OBJ      = "BUILTIN"
	RETURN_VALUE_OBJ = "RETURN_VALUE"
	ERROR_OBJ        = "ERROR"
)

// Reserved member names on class templates and instances.
const (
	NameProp    = "~name"
	InitProp    = "~init"
	DisplayProp = "~display"
)

var (
	NULL  = &Null{}
	TRUE  = &Boolean{Value: true}
	FALSE = &Boolean{Value: false}
)

type ValueType string

// Value is the closed union of everything that exists in the language.
type Value interface {
	Type() ValueType
	Inspect() string
}

// BuiltinContext is the bridge handed to native built-in functions so they
// can render values and reach the runtime's output stream.
type BuiltinContext interface {
	Render(v Value) string
	Output() io.Writer
	NewError(kind ErrorKind, format string, a ...interface{}) *Error
}

type BuiltinFunction func(ctx BuiltinContext, args ...Value) Value

type Null struct{}

func (n *Null) Type() ValueType { return NULL_OBJ }
func (n *Null) Inspect() string { return "null" }

type Number struct {
	Value float64
}

func (n *Number) Type() ValueType { return NUMBER_OBJ }
func (n *Number) Inspect() string { return strconv.FormatFloat(n.Value, 'f', -1, 64) }

type String struct {
	Value string
}

func (s *String) Type() ValueType { return STRING_OBJ }
func (s *String) Inspect() string { return s.Value }

type Boolean struct {
	Value bool
}

func (b *Boolean) Type() ValueType { return BOOLEAN_OBJ }
func (b *Boolean) Inspect() string {
	if b.Value {
		return "true"
	}
	return "false"
}

// Array is an ordered, mutable sequence of owned values.
type Array struct {
	Elements []Value
}

func (a *Array) Type() ValueType { return ARRAY_OBJ }
func (a *Array) Inspect() string {
	var out bytes.Buffer

	elements := []string{}
	for _, e := range a.Elements {
		elements = append(elements, quoted(e))
	}

	out.WriteString("[")
	out.WriteString(strings.Join(elements, ", "))
	out.WriteString("]")

	return out.String()
}

// NameRef is a deferred reference to "the value currently bound to this
// identifier". It is resolved against a frame when consumed: arithmetic
// operands resolve it before defaulting, and the call protocol resolves it
// once more against the caller's frame before binding a parameter.
type NameRef struct {
	Name string
}

func (n *NameRef) Type() ValueType { return NAME_OBJ }
func (n *NameRef) Inspect() string { return n.Name }

// Function captures a declared name, the ordered parameter name placeholders
// and the owned body subtree. There is no enclosing-scope capture: only the
// invocation frame and the heap are visible while a body runs.
type Function struct {
	Name       string
	Parameters []*NameRef
	Body       *ast.BlockStatement
}

func (f *Function) Type() ValueType { return FUNCTION_OBJ }
func (f *Function) Inspect() string {
	var out bytes.Buffer

	params := []string{}
	for _, p := range f.Parameters {
		params = append(params, p.Name)
	}

	out.WriteString("func ")
	out.WriteString(f.Name)
	out.WriteString("(")
	out.WriteString(strings.Join(params, ", "))
	out.WriteString(")")

	return out.String()
}

// Object maps property names to owned values. It backs both class templates
// stored on the heap and the instances cloned from them.
type Object struct {
	Members map[string]Value
}

func (o *Object) Type() ValueType { return OBJECT_OBJ }

// Inspect renders the raw property map with sorted keys so output is
// deterministic. Rendering through ~display is the runtime's job.
func (o *Object) Inspect() string {
	var out bytes.Buffer

	keys := make([]string, 0, len(o.Members))
	for k := range o.Members {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := []string{}
	for _, k := range keys {
		pairs = append(pairs, k+": "+quoted(o.Members[k]))
	}

	out.WriteString("{")
	out.WriteString(strings.Join(pairs, ", "))
	out.WriteString("}")

	return out.String()
}

func (o *Object) Class() string {
	if name, ok := o.Members[NameProp].(*String); ok {
		return name.Value
	}
	return ""
}

type Builtin struct {
	Name string
	Fn   BuiltinFunction
}

func (b *Builtin) Type() ValueType { return BUILTIN_OBJ }
func (b *Builtin) Inspect() string { return "builtin " + b.Name }

// ReturnValue wraps the operand of a return so that block and loop
// evaluation can unwind to the nearest call boundary, where it is unwrapped.
type ReturnValue struct {
	Value Value
}

func (rv *ReturnValue) Type() ValueType { return RETURN_VALUE_OBJ }
func (rv *ReturnValue) Inspect() string { return rv.Value.Inspect() }

type ErrorKind string

const (
	TYPE_ERROR            ErrorKind = "TypeError"
	UNDEFINED_ERROR       ErrorKind = "UndefinedError"
	ARITY_ERROR           ErrorKind = "ArityError"
	INDEX_ERROR           ErrorKind = "IndexError"
	PROPERTY_ERROR        ErrorKind = "PropertyError"
	UNEXPECTED_NODE_ERROR ErrorKind = "UnexpectedNodeError"
)

// Error aborts the evaluation chain that produced it; every evaluation step
// checks child results and propagates errors unchanged.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Type() ValueType { return ERROR_OBJ }
func (e *Error) Inspect() string { return string(e.Kind) + ": " + e.Message }

// quoted renders a value for embedding in a container, quoting strings.
func quoted(v Value) string {
	if s, ok := v.(*String); ok {
		return "\"" + s.Value + "\""
	}
	return v.Inspect()
}

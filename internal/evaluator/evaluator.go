package evaluator

import (
	"bytes"
	"fmt"
	"gem/internal/ast"
	"gem/internal/object"
	"gem/internal/token"
	"io"
	"math"
	"strings"
)

// Runtime owns the heap of named definitions, the built-in registry and the
// output stream that print writes to. Evaluation is synchronous and
// recursive; one Runtime drives one program (or one REPL session).
type Runtime struct {
	heap *object.Heap
	out  io.Writer
}

func New(out io.Writer) *Runtime {
	return &Runtime{
		heap: object.NewHeap(),
		out:  out,
	}
}

func (r *Runtime) Output() io.Writer { return r.out }

func (r *Runtime) NewError(kind object.ErrorKind, format string, a ...interface{}) *object.Error {
	return newError(kind, format, a...)
}

func newError(kind object.ErrorKind, format string, a ...interface{}) *object.Error {
	return &object.Error{Kind: kind, Message: fmt.Sprintf(format, a...)}
}

func isError(v object.Value) bool {
	if v != nil {
		return v.Type() == object.ERROR_OBJ
	}
	return false
}

// isTrue implements the condition rule: only a value equal to the Boolean
// true takes a branch, anything else counts as false.
func isTrue(v object.Value) bool {
	return object.Equals(v, object.TRUE)
}

func boolValue(b bool) *object.Boolean {
	if b {
		return object.TRUE
	}
	return object.FALSE
}

// Run walks the top-level statements in a fresh frame, populating the heap
// with every function and class definition, then calls main with the single
// supplied argument.
func (r *Runtime) Run(program *ast.Program, arg object.Value) object.Value {
	frame := object.NewFrame()

	for _, statement := range program.Statements {
		result := r.Eval(statement, frame)
		if isError(result) {
			return result
		}
		if ret, ok := result.(*object.ReturnValue); ok {
			return ret.Value
		}
	}

	entry, ok := r.heap.Get("main")
	if !ok {
		return newError(object.UNDEFINED_ERROR, "function 'main' is not defined")
	}
	fn, ok := entry.(*object.Function)
	if !ok {
		return newError(object.TYPE_ERROR, "'main' is not a function, got %s", entry.Type())
	}
	if len(fn.Parameters) != 1 {
		return newError(object.ARITY_ERROR, "expected 1 parameter for main, got %d", len(fn.Parameters))
	}

	funcFrame := object.NewFrame()
	funcFrame.Set(fn.Parameters[0].Name, arg)
	return r.apply(fn, funcFrame)
}

// Eval dispatches on node kind. Every child result is checked for an error
// before use; errors propagate unchanged. Unrecognized node kinds yield null.
func (r *Runtime) Eval(node ast.Node, frame *object.Frame) object.Value {
	switch node := node.(type) {

	// Statements
	case *ast.Program:
		return r.evalProgram(node, frame)

	case *ast.ExpressionStatement:
		return r.Eval(node.Expression, frame)

	case *ast.BlockStatement:
		return r.evalBlockStatement(node, frame)

	case *ast.ReturnStatement:
		value := object.Value(object.NULL)
		if node.Value != nil {
			value = r.Eval(node.Value, frame)
			if isError(value) {
				return value
			}
		}
		return &object.ReturnValue{Value: value}

	case *ast.FunctionStatement:
		fn := makeFunction(node.Name.Value, node.Parameters, node.Body)
		r.heap.Define(node.Name.Value, fn)
		return fn

	case *ast.ClassStatement:
		return r.defineClass(node)

	case *ast.WhileStatement:
		return r.evalWhileStatement(node, frame)

	case *ast.ForStatement:
		return r.evalForStatement(node, frame)

	// Expressions
	case *ast.IfExpression:
		return r.evalIfExpression(node, frame)

	case *ast.NumberLiteral:
		return &object.Number{Value: node.Value}

	case *ast.StringLiteral:
		return &object.String{Value: node.Value}

	case *ast.BooleanLiteral:
		return boolValue(node.Value)

	case *ast.NullLiteral:
		return object.NULL

	case *ast.Identifier:
		// absent variables read as null, never an error
		return frame.Get(node.Value)

	case *ast.ArrayLiteral:
		elements := make([]object.Value, 0, len(node.Elements))
		for _, element := range node.Elements {
			value := r.Eval(element, frame)
			if isError(value) {
				return value
			}
			elements = append(elements, value)
		}
		return &object.Array{Elements: elements}

	case *ast.InfixExpression:
		return r.evalInfixExpression(node, frame)

	case *ast.AssignExpression:
		return r.evalAssignExpression(node, frame)

	case *ast.IndexExpression:
		return r.evalIndexExpression(node, frame)

	case *ast.PropertyExpression:
		return r.evalPropertyExpression(node, frame)

	case *ast.CallExpression:
		return r.evalCallExpression(node, frame)

	case *ast.MethodCallExpression:
		return r.evalMethodCall(node, frame)

	case *ast.NewExpression:
		return r.evalNewExpression(node, frame)
	}

	return object.NULL
}

func (r *Runtime) evalProgram(program *ast.Program, frame *object.Frame) object.Value {
	var result object.Value = object.NULL

	for _, statement := range program.Statements {
		result = r.Eval(statement, frame)

		switch result := result.(type) {
		case *object.ReturnValue:
			return result.Value
		case *object.Error:
			return result
		}
	}

	return result
}

// evalBlockStatement discards intermediate results; only a return or an
// error escapes, unwrapped later at the call boundary. A block that runs to
// the end yields null.
func (r *Runtime) evalBlockStatement(block *ast.BlockStatement, frame *object.Frame) object.Value {
	for _, statement := range block.Statements {
		result := r.Eval(statement, frame)

		switch result.(type) {
		case *object.ReturnValue, *object.Error:
			return result
		}
	}

	return object.NULL
}

func (r *Runtime) evalIfExpression(ie *ast.IfExpression, frame *object.Frame) object.Value {
	condition := r.Eval(ie.Condition, frame)
	if isError(condition) {
		return condition
	}

	if isTrue(condition) {
		return r.Eval(ie.ThenBranch, frame)
	}
	if ie.ElseBranch != nil {
		// either the next elseif in the chain or the final else block
		return r.Eval(ie.ElseBranch, frame)
	}
	return object.NULL
}

func (r *Runtime) evalWhileStatement(ws *ast.WhileStatement, frame *object.Frame) object.Value {
	for {
		condition := r.Eval(ws.Condition, frame)
		if isError(condition) {
			return condition
		}
		if !isTrue(condition) {
			return object.NULL
		}

		result := r.Eval(ws.Body, frame)
		switch result.(type) {
		case *object.ReturnValue, *object.Error:
			return result
		}
	}
}

func (r *Runtime) evalForStatement(fs *ast.ForStatement, frame *object.Frame) object.Value {
	if fs.Init != nil {
		if result := r.Eval(fs.Init, frame); isError(result) {
			return result
		}
	}

	for {
		condition := r.Eval(fs.Condition, frame)
		if isError(condition) {
			return condition
		}
		if !isTrue(condition) {
			return object.NULL
		}

		result := r.Eval(fs.Body, frame)
		switch result.(type) {
		case *object.ReturnValue, *object.Error:
			// the post expression does not run when a return fires
			return result
		}

		if fs.Post != nil {
			if result := r.Eval(fs.Post, frame); isError(result) {
				return result
			}
		}
	}
}

func (r *Runtime) evalInfixExpression(ie *ast.InfixExpression, frame *object.Frame) object.Value {
	left := r.Eval(ie.Left, frame)
	if isError(left) {
		return left
	}
	right := r.Eval(ie.Right, frame)
	if isError(right) {
		return right
	}

	switch ie.Operator {
	case token.PLUS, token.MINUS, token.ASTERISK, token.SLASH:
		return r.evalArithmetic(ie.Operator, left, right, frame)
	case token.EQ:
		return boolValue(object.Equals(left, right))
	case token.NOT_EQ:
		return boolValue(!object.Equals(left, right))
	case token.LT:
		return boolValue(object.Compare(left, right) < 0)
	case token.LT_EQ:
		return boolValue(object.Compare(left, right) <= 0)
	case token.GT:
		return boolValue(object.Compare(left, right) > 0)
	case token.GT_EQ:
		return boolValue(object.Compare(left, right) >= 0)
	}

	return newError(object.UNEXPECTED_NODE_ERROR, "unknown operator %s", ie.Operator)
}

// evalArithmetic implements + - * /. A string on the left of + concatenates
// the rendered right value; a string on the right does not, and any other
// non-numeric operand counts as 0.
func (r *Runtime) evalArithmetic(op token.TokenType, left, right object.Value, frame *object.Frame) object.Value {
	if s, ok := left.(*object.String); ok && op == token.PLUS {
		return &object.String{Value: s.Value + r.Render(right)}
	}

	l := numericValue(left, frame)
	n := numericValue(right, frame)

	switch op {
	case token.PLUS:
		return &object.Number{Value: l + n}
	case token.MINUS:
		return &object.Number{Value: l - n}
	case token.ASTERISK:
		return &object.Number{Value: l * n}
	case token.SLASH:
		return &object.Number{Value: l / n}
	}

	return newError(object.UNEXPECTED_NODE_ERROR, "unknown operator %s", op)
}

// numericValue resolves an arithmetic operand to a float. Name references
// resolve against the frame; everything that is not a number defaults to 0.
func numericValue(v object.Value, frame *object.Frame) float64 {
	switch v := v.(type) {
	case *object.Number:
		return v.Value
	case *object.NameRef:
		if n, ok := frame.Get(v.Name).(*object.Number); ok {
			return n.Value
		}
	}
	return 0
}

func (r *Runtime) evalAssignExpression(ae *ast.AssignExpression, frame *object.Frame) object.Value {
	switch target := ae.Target.(type) {
	case *ast.Identifier:
		value := r.Eval(ae.Value, frame)
		if isError(value) {
			return value
		}
		frame.Set(target.Value, object.Clone(value))
		return value

	case *ast.IndexExpression:
		return r.evalIndexAssign(target, ae.Value, frame)

	case *ast.PropertyExpression:
		return r.evalPropertyAssign(target, ae.Value, frame)
	}

	return newError(object.UNEXPECTED_NODE_ERROR, "cannot assign to %s", ae.Target.String())
}

// evalIndexAssign handles name[i] = v and chained forms like grid[i][j] = v.
// The index chain is flattened outermost-first, then the stored container is
// mutated in place so the write is visible to later reads of the name.
func (r *Runtime) evalIndexAssign(target *ast.IndexExpression, rhs ast.Expression, frame *object.Frame) object.Value {
	chain := []ast.Expression{}
	base := ast.Expression(target)
	for {
		ie, ok := base.(*ast.IndexExpression)
		if !ok {
			break
		}
		chain = append([]ast.Expression{ie.Index}, chain...)
		base = ie.Left
	}

	name, ok := base.(*ast.Identifier)
	if !ok {
		return newError(object.UNEXPECTED_NODE_ERROR, "cannot index-assign to %s", base.String())
	}

	indices := make([]int, 0, len(chain))
	for _, expr := range chain {
		value := r.Eval(expr, frame)
		if isError(value) {
			return value
		}
		index, err := integralIndex(value)
		if err != nil {
			return err
		}
		indices = append(indices, index)
	}

	value := r.Eval(rhs, frame)
	if isError(value) {
		return value
	}

	if err := frame.SetIndex(name.Value, indices, object.Clone(value)); err != nil {
		return newError(object.INDEX_ERROR, "%s", err)
	}
	return value
}

// integralIndex validates an index used on the left of an assignment: it
// must be a non-negative integral number.
func integralIndex(v object.Value) (int, *object.Error) {
	n, ok := v.(*object.Number)
	if !ok {
		return 0, newError(object.INDEX_ERROR, "index was not a number, got %s", v.Type())
	}
	if n.Value < 0 || n.Value != math.Trunc(n.Value) {
		return 0, newError(object.INDEX_ERROR, "index %s is not a non-negative integer", n.Inspect())
	}
	return int(n.Value), nil
}

func (r *Runtime) evalPropertyAssign(target *ast.PropertyExpression, rhs ast.Expression, frame *object.Frame) object.Value {
	name, ok := target.Object.(*ast.Identifier)
	if !ok {
		return newError(object.UNEXPECTED_NODE_ERROR, "cannot assign property on %s", target.Object.String())
	}

	value := r.Eval(rhs, frame)
	if isError(value) {
		return value
	}

	if err := frame.SetProperty(name.Value, target.Property.Value, object.Clone(value)); err != nil {
		return newError(object.TYPE_ERROR, "%s", err)
	}
	return value
}

func (r *Runtime) evalIndexExpression(ie *ast.IndexExpression, frame *object.Frame) object.Value {
	left := r.Eval(ie.Left, frame)
	if isError(left) {
		return left
	}
	index := r.Eval(ie.Index, frame)
	if isError(index) {
		return index
	}

	arr, ok := left.(*object.Array)
	if !ok {
		return newError(object.INDEX_ERROR, "type %s isn't indexable", left.Type())
	}
	n, ok := index.(*object.Number)
	if !ok {
		return newError(object.INDEX_ERROR, "index was not a number, got %s", index.Type())
	}

	// reads truncate the index toward zero
	i := int(n.Value)
	if i < 0 || i >= len(arr.Elements) {
		return newError(object.INDEX_ERROR, "index %d out of bounds", i)
	}
	return arr.Elements[i]
}

func (r *Runtime) evalPropertyExpression(pe *ast.PropertyExpression, frame *object.Frame) object.Value {
	value := r.Eval(pe.Object, frame)
	if isError(value) {
		return value
	}

	obj, ok := value.(*object.Object)
	if !ok {
		return newError(object.TYPE_ERROR, "%s is not an object", pe.Object.String())
	}

	member, ok := obj.Members[pe.Property.Value]
	if !ok {
		return newError(object.PROPERTY_ERROR, "%s has no property %s", objectName(obj), pe.Property.Value)
	}
	return member
}

func (r *Runtime) evalCallExpression(ce *ast.CallExpression, frame *object.Frame) object.Value {
	name := ce.Function.Value

	// built-ins shadow heap entries
	if builtin, ok := builtins[name]; ok {
		args := make([]object.Value, 0, len(ce.Arguments))
		for _, argument := range ce.Arguments {
			value := r.Eval(argument, frame)
			if isError(value) {
				return value
			}
			args = append(args, value)
		}
		return builtin.Fn(r, args...)
	}

	entry, ok := r.heap.Get(name)
	if !ok {
		return newError(object.UNDEFINED_ERROR, "identifier '%s' is not defined", name)
	}
	fn, ok := entry.(*object.Function)
	if !ok {
		return newError(object.TYPE_ERROR, "'%s' is not a function, got %s", name, entry.Type())
	}

	if len(ce.Arguments) != len(fn.Parameters) {
		return newError(object.ARITY_ERROR, "expected %d arguments for %s, got %d",
			len(fn.Parameters), name, len(ce.Arguments))
	}

	funcFrame := object.NewFrame()
	if result := r.bindArguments(funcFrame, fn.Parameters, ce.Arguments, frame); result != nil {
		return result
	}
	return r.apply(fn, funcFrame)
}

func (r *Runtime) evalMethodCall(mc *ast.MethodCallExpression, frame *object.Frame) object.Value {
	receiver := r.Eval(mc.Receiver, frame)
	if isError(receiver) {
		return receiver
	}

	obj, ok := receiver.(*object.Object)
	if !ok {
		return newError(object.TYPE_ERROR, "%s is not an object", mc.Receiver.String())
	}

	member, ok := obj.Members[mc.Method.Value]
	if !ok {
		return newError(object.PROPERTY_ERROR, "%s has no method %s", objectName(obj), mc.Method.Value)
	}
	fn, ok := member.(*object.Function)
	if !ok {
		return newError(object.TYPE_ERROR, "%s.%s is not a function, got %s",
			objectName(obj), mc.Method.Value, member.Type())
	}

	// the first parameter is the implicit receiver
	if len(fn.Parameters) == 0 {
		return newError(object.ARITY_ERROR, "method %s for %s is missing its receiver parameter",
			mc.Method.Value, objectName(obj))
	}
	if len(mc.Arguments) != len(fn.Parameters)-1 {
		return newError(object.ARITY_ERROR, "method %s for %s takes %d arguments, got %d",
			mc.Method.Value, objectName(obj), len(fn.Parameters)-1, len(mc.Arguments))
	}

	funcFrame := object.NewFrame()
	funcFrame.Set(fn.Parameters[0].Name, receiver)
	if result := r.bindArguments(funcFrame, fn.Parameters[1:], mc.Arguments, frame); result != nil {
		return result
	}
	return r.apply(fn, funcFrame)
}

func (r *Runtime) evalNewExpression(ne *ast.NewExpression, frame *object.Frame) object.Value {
	entry, ok := r.heap.Get(ne.Class.Value)
	if !ok {
		return newError(object.UNDEFINED_ERROR, "class %s is not defined", ne.Class.Value)
	}
	template, ok := entry.(*object.Object)
	if !ok {
		return newError(object.TYPE_ERROR, "'%s' is not a class, got %s", ne.Class.Value, entry.Type())
	}

	instance := object.Clone(template).(*object.Object)

	member, ok := instance.Members[object.InitProp]
	if !ok {
		// no constructor: the instance is a plain copy of the template and
		// any arguments are ignored
		return instance
	}
	fn, ok := member.(*object.Function)
	if !ok {
		return newError(object.TYPE_ERROR, "constructor for %s is not a function, got %s",
			ne.Class.Value, member.Type())
	}
	if len(fn.Parameters) == 0 {
		return newError(object.ARITY_ERROR, "constructor for %s is missing its receiver parameter",
			ne.Class.Value)
	}
	if len(ne.Arguments) != len(fn.Parameters)-1 {
		return newError(object.ARITY_ERROR, "constructor for %s takes %d arguments, got %d",
			ne.Class.Value, len(fn.Parameters)-1, len(ne.Arguments))
	}

	funcFrame := object.NewFrame()
	funcFrame.Set(fn.Parameters[0].Name, instance)
	if result := r.bindArguments(funcFrame, fn.Parameters[1:], ne.Arguments, frame); result != nil {
		return result
	}

	if result := r.Eval(fn.Body, funcFrame); isError(result) {
		return result
	}
	// the constructor's return value is discarded; the instance is whatever
	// the receiver binding holds when the body finishes
	return funcFrame.Get(fn.Parameters[0].Name)
}

// bindArguments evaluates each argument in the caller's frame and binds it
// in the callee's frame. An argument that evaluates to a name reference is
// resolved once more against the caller's frame, so passing a bare
// identifier forwards its current value. Returns nil on success or the
// first argument error.
func (r *Runtime) bindArguments(callee *object.Frame, params []*object.NameRef, args []ast.Expression, caller *object.Frame) object.Value {
	for i, param := range params {
		value := r.Eval(args[i], caller)
		if isError(value) {
			return value
		}
		if ref, ok := value.(*object.NameRef); ok {
			value = caller.Get(ref.Name)
		}
		callee.Set(param.Name, value)
	}
	return nil
}

// apply runs a function body in its prepared frame and unwraps the return
// value at this call boundary. A body that runs to the end yields null.
func (r *Runtime) apply(fn *object.Function, funcFrame *object.Frame) object.Value {
	result := r.Eval(fn.Body, funcFrame)
	if isError(result) {
		return result
	}
	if ret, ok := result.(*object.ReturnValue); ok {
		return ret.Value
	}
	return object.NULL
}

// defineClass builds the class template: every member of the body must be a
// function definition, stored as a method property alongside ~name.
func (r *Runtime) defineClass(cs *ast.ClassStatement) object.Value {
	members := map[string]object.Value{
		object.NameProp: &object.String{Value: cs.Name.Value},
	}

	for _, statement := range cs.Body.Statements {
		fn, ok := statement.(*ast.FunctionStatement)
		if !ok {
			return newError(object.UNEXPECTED_NODE_ERROR,
				"class %s may only contain function definitions, got %s", cs.Name.Value, statement.String())
		}
		members[fn.Name.Value] = makeFunction(fn.Name.Value, fn.Parameters, fn.Body)
	}

	template := &object.Object{Members: members}
	r.heap.Define(cs.Name.Value, template)
	return template
}

func makeFunction(name string, parameters []*ast.Identifier, body *ast.BlockStatement) *object.Function {
	params := make([]*object.NameRef, 0, len(parameters))
	for _, parameter := range parameters {
		params = append(params, &object.NameRef{Name: parameter.Value})
	}
	return &object.Function{Name: name, Parameters: params, Body: body}
}

// Render turns a value into its display text. Strings render unquoted at
// the top level but quoted inside arrays; objects with a ~display method
// render through it, in a synthetic frame binding the receiver.
func (r *Runtime) Render(v object.Value) string {
	switch v := v.(type) {
	case *object.String:
		return v.Value

	case *object.Array:
		var out bytes.Buffer

		elements := []string{}
		for _, element := range v.Elements {
			if s, ok := element.(*object.String); ok {
				elements = append(elements, "\""+s.Value+"\"")
			} else {
				elements = append(elements, r.Render(element))
			}
		}

		out.WriteString("[")
		out.WriteString(strings.Join(elements, ", "))
		out.WriteString("]")

		return out.String()

	case *object.Object:
		if fn, ok := v.Members[object.DisplayProp].(*object.Function); ok && len(fn.Parameters) > 0 {
			funcFrame := object.NewFrame()
			funcFrame.Set(fn.Parameters[0].Name, object.Clone(v))
			result := r.apply(fn, funcFrame)
			if !isError(result) {
				return r.Render(result)
			}
		}
		return v.Inspect()
	}

	return v.Inspect()
}

// objectName names an object for diagnostics, preferring its class name.
func objectName(obj *object.Object) string {
	if name := obj.Class(); name != "" {
		return name
	}
	return obj.Inspect()
}

package evaluator

import (
	"bytes"
	"fmt"
	"gem/internal/lexer"
	"gem/internal/object"
	"gem/internal/parser"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func testEval(t *testing.T, input string) (object.Value, string) {
	t.Helper()

	l := lexer.New(input)
	p := parser.New(l, input)
	program := p.ParseProgram()
	if len(p.Errors()) != 0 {
		t.Fatalf("parser errors: %v", p.Errors())
	}

	var out bytes.Buffer
	r := New(&out)
	result := r.Eval(program, object.NewFrame())
	return result, out.String()
}

func testNumberValue(t *testing.T, v object.Value, expected float64) {
	t.Helper()

	result, ok := v.(*object.Number)
	if !ok {
		t.Fatalf("value is %T (%+v), want *object.Number", v, v)
	}
	if result.Value != expected {
		t.Errorf("value wrong. want=%f, got=%f", expected, result.Value)
	}
}

func testBooleanValue(t *testing.T, v object.Value, expected bool) {
	t.Helper()

	result, ok := v.(*object.Boolean)
	if !ok {
		t.Fatalf("value is %T (%+v), want *object.Boolean", v, v)
	}
	if result.Value != expected {
		t.Errorf("value wrong. want=%t, got=%t", expected, result.Value)
	}
}

func testErrorValue(t *testing.T, v object.Value, kind object.ErrorKind) *object.Error {
	t.Helper()

	err, ok := v.(*object.Error)
	if !ok {
		t.Fatalf("value is %T (%+v), want *object.Error", v, v)
	}
	if err.Kind != kind {
		t.Errorf("error kind wrong. want=%s, got=%s (%s)", kind, err.Kind, err.Message)
	}
	return err
}

func TestNumberArithmetic(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{"5", 5},
		{"5 + 5 + 5 + 5 - 10", 10},
		{"2 * 2 * 2 * 2 * 2", 32},
		{"-50 + 100 + -50", 0},
		{"5 * 2 + 10", 20},
		{"5 + 2 * 10", 25},
		{"50 / 2 * 2 + 10", 60},
		{"2 * (5 + 10)", 30},
		{"3 * 3 * 3 + 10", 37},
		{"(5 + 10 * 2 + 15 / 3) * 2 + -10", 50},
		{"10 / 4", 2.5},
		// runtime float64 addition, not the constant-folded 0.3
		{"0.1 + 0.2", 0.30000000000000004},
	}

	for _, tt := range tests {
		result, _ := testEval(t, tt.input)
		testNumberValue(t, result, tt.expected)
	}
}

func TestArithmeticDefaultsNonNumericToZero(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{"true + 5", 5},
		{"null * 3", 0},
		{"[1, 2] + 1", 1},
		{"5 + \"bar\"", 5}, // a string on the right does not concatenate
	}

	for _, tt := range tests {
		result, _ := testEval(t, tt.input)
		testNumberValue(t, result, tt.expected)
	}
}

func TestStringConcatenation(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`"foo" + "bar"`, "foobar"},
		{`"n = " + 5`, "n = 5"},
		{`"ok: " + true`, "ok: true"},
		{`"xs: " + [1, "two"]`, `xs: [1, "two"]`},
	}

	for _, tt := range tests {
		result, _ := testEval(t, tt.input)

		str, ok := result.(*object.String)
		if !ok {
			t.Fatalf("value is %T (%+v), want *object.String", result, result)
		}
		if str.Value != tt.expected {
			t.Errorf("value wrong. want=%q, got=%q", tt.expected, str.Value)
		}
	}
}

func TestComparisonExpressions(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"1 < 2", true},
		{"1 > 2", false},
		{"1 <= 1", true},
		{"1 >= 2", false},
		{"1 == 1", true},
		{"1 != 1", false},
		{"1 != 2", true},
		{`"a" < "b"`, true},
		{`"a" == "a"`, true},
		// cross-kind comparisons never error; equality across kinds is false
		{`5 == "5"`, false},
		{`5 != "5"`, true},
		{"null == 0", false},
		{"false == null", false},
		// fixed cross-kind order: Null < Number < String < Boolean < Array
		{`1 < "a"`, true},
		{"null < 0", true},
		{`"z" < true`, true},
		{"true < [1]", true},
	}

	for _, tt := range tests {
		result, _ := testEval(t, tt.input)
		testBooleanValue(t, result, tt.expected)
	}
}

func TestAbsentVariableReadsNull(t *testing.T) {
	result, _ := testEval(t, "missing == null")
	testBooleanValue(t, result, true)
}

func TestAssignment(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{"x = 5; x", 5},
		{"x = 5 * 5; x", 25},
		{"x = 5; y = x; y", 5},
		{"x = 5; y = x; z = x + y + 5; z", 15},
		// assignment yields the assigned value
		{"x = 7", 7},
		{"x = y = 3; x + y", 6},
	}

	for _, tt := range tests {
		result, _ := testEval(t, tt.input)
		testNumberValue(t, result, tt.expected)
	}
}

func TestIfElseChain(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{"x = 0; if (true) { x = 1 } x", 1},
		{"x = 0; if (false) { x = 1 } x", 0},
		{"x = 0; if (1 < 2) { x = 1 } else { x = 2 } x", 1},
		{"x = 0; if (1 > 2) { x = 1 } else { x = 2 } x", 2},
		{"x = 0; if (1 > 2) { x = 1 } elseif (2 == 2) { x = 2 } else { x = 3 } x", 2},
		{"x = 0; if (1 > 2) { x = 1 } elseif (2 != 2) { x = 2 } else { x = 3 } x", 3},
		// any value that is not the boolean true counts as false
		{"x = 0; if (5) { x = 1 } x", 0},
		{`x = 0; if ("yes") { x = 1 } x`, 0},
		{"x = 0; if (null) { x = 1 } x", 0},
	}

	for _, tt := range tests {
		result, _ := testEval(t, tt.input)
		testNumberValue(t, result, tt.expected)
	}
}

func TestWhileLoop(t *testing.T) {
	input := "i = 0; while (i < 3) { print(i); i = i + 1; }"

	_, output := testEval(t, input)

	expected := "0\n1\n2\n"
	if output != expected {
		t.Errorf("output wrong. want=%q, got=%q", expected, output)
	}
}

func TestForLoop(t *testing.T) {
	input := "for (i = 0; i < 3; i = i + 1) { print(i); }"

	_, output := testEval(t, input)

	expected := "0\n1\n2\n"
	if output != expected {
		t.Errorf("output wrong. want=%q, got=%q", expected, output)
	}
}

func TestForLoopWithoutInit(t *testing.T) {
	input := "i = 10; for (; i > 8; i = i - 1) { print(i); }"

	_, output := testEval(t, input)

	expected := "10\n9\n"
	if output != expected {
		t.Errorf("output wrong. want=%q, got=%q", expected, output)
	}
}

func TestFunctionCalls(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{"func identity(x) { return x; } identity(5)", 5},
		{"func double(x) { return x * 2; } double(5)", 10},
		{"func add(a, b) { return a + b; } add(2, 3)", 5},
		{"func add(a, b) { return a + b; } add(5 + 5, add(5, 5))", 20},
		// passing a bare identifier forwards its current value
		{"func double(x) { return x * 2; } n = 21; double(n)", 42},
		// a body without a return yields null, and null defaults to 0
		{"func noop(x) { x = 1; } noop(5) + 3", 3},
	}

	for _, tt := range tests {
		result, _ := testEval(t, tt.input)
		testNumberValue(t, result, tt.expected)
	}
}

func TestAddScenario(t *testing.T) {
	input := "func add(a, b) { return a + b; } print(add(2, 3));"

	_, output := testEval(t, input)

	if output != "5\n" {
		t.Errorf("output wrong. want=%q, got=%q", "5\n", output)
	}
}

func TestReturnUnwindsToFunctionBoundary(t *testing.T) {
	input := `
func find(limit) {
    i = 0;
    while (i < limit) {
        if (i == 2) {
            return i * 10;
        }
        i = i + 1;
    }
    return -1;
}
find(5)`

	result, _ := testEval(t, input)
	testNumberValue(t, result, 20)
}

func TestReturnWithoutValue(t *testing.T) {
	input := `
func f(x) {
    if (x == 1) {
        return;
    }
    return 99;
}
f(1) == null`

	result, _ := testEval(t, input)
	testBooleanValue(t, result, true)
}

func TestFunctionsHaveNoEnclosingScope(t *testing.T) {
	// only the invocation frame and the heap are visible inside a body
	input := "outer = 10; func f(x) { return outer + x; } f(1)"

	result, _ := testEval(t, input)
	testNumberValue(t, result, 1)
}

func TestArrays(t *testing.T) {
	input := "arr = [1, 2 * 2, 3 + 3]; arr"

	result, _ := testEval(t, input)

	want := &object.Array{Elements: []object.Value{
		&object.Number{Value: 1},
		&object.Number{Value: 4},
		&object.Number{Value: 6},
	}}
	if diff := cmp.Diff(want, result); diff != "" {
		t.Errorf("array wrong (-want +got):\n%s", diff)
	}
}

func TestArrayIndexing(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{"[1, 2, 3][0]", 1},
		{"[1, 2, 3][2]", 3},
		{"arr = [1, 2, 3]; arr[1]", 2},
		{"arr = [1, 2, 3]; i = 2; arr[i]", 3},
		{"arr = [[1, 2], [3, 4]]; arr[1][0]", 3},
		// read indices truncate toward zero
		{"[1, 2, 3][1.9]", 2},
	}

	for _, tt := range tests {
		result, _ := testEval(t, tt.input)
		testNumberValue(t, result, tt.expected)
	}
}

func TestArrayIndexAssignment(t *testing.T) {
	input := "arr = [1, 2, 3]; arr[1] = 9; print(arr);"

	_, output := testEval(t, input)

	if output != "[1, 9, 3]\n" {
		t.Errorf("output wrong. want=%q, got=%q", "[1, 9, 3]\n", output)
	}
}

func TestNestedArrayAssignment(t *testing.T) {
	input := "grid = [[1, 2], [3, 4]]; grid[1][0] = 7; grid[1][0]"

	result, _ := testEval(t, input)
	testNumberValue(t, result, 7)
}

func TestIndexErrors(t *testing.T) {
	tests := []string{
		"[1, 2, 3][3]",
		"[1, 2, 3][-1]",
		"arr = [1, 2, 3]; arr[5] = 0",
		"arr = [1, 2, 3]; arr[1.5] = 0",
		"missing[0] = 1",
		"n = 5; n[0]",
		`[1, 2]["one"]`,
	}

	for _, input := range tests {
		result, _ := testEval(t, input)
		testErrorValue(t, result, object.INDEX_ERROR)
	}
}

func TestClassConstruction(t *testing.T) {
	input := `
class Point {
    func ~init(self, x, y) {
        self.x = x;
        self.y = y;
    }
}
p = new Point(1, 2);
print(p.x);`

	_, output := testEval(t, input)

	if output != "1\n" {
		t.Errorf("output wrong. want=%q, got=%q", "1\n", output)
	}
}

func TestConstructionWithoutInit(t *testing.T) {
	input := `
class Marker {
    func describe(self) {
        return "marker";
    }
}
m = new Marker();
m.~name`

	result, _ := testEval(t, input)

	str, ok := result.(*object.String)
	if !ok {
		t.Fatalf("value is %T (%+v), want *object.String", result, result)
	}
	if str.Value != "Marker" {
		t.Errorf("~name wrong. want=%q, got=%q", "Marker", str.Value)
	}
}

func TestConstructionWithoutInitIgnoresArguments(t *testing.T) {
	input := `
class Marker {}
m = new Marker(1, 2);
m.~name`

	result, _ := testEval(t, input)

	str, ok := result.(*object.String)
	if !ok {
		t.Fatalf("value is %T (%+v), want *object.String", result, result)
	}
	if str.Value != "Marker" {
		t.Errorf("~name wrong. want=%q, got=%q", "Marker", str.Value)
	}
}

func TestMethodCalls(t *testing.T) {
	input := `
class Counter {
    func ~init(self, start) {
        self.n = start;
    }
    func plus(self, x) {
        return self.n + x;
    }
}
c = new Counter(40);
c.plus(2)`

	result, _ := testEval(t, input)
	testNumberValue(t, result, 42)
}

func TestObjectValueSemantics(t *testing.T) {
	input := `
class Point {
    func ~init(self, x) {
        self.x = x;
    }
    func bump(self) {
        self.x = self.x + 100;
        return self.x;
    }
}
p = new Point(1);
bumped = p.bump();
print(bumped);
print(p.x);`

	_, output := testEval(t, input)

	// the method mutated its own copy of the receiver, not the caller's p
	expected := "101\n1\n"
	if output != expected {
		t.Errorf("output wrong. want=%q, got=%q", expected, output)
	}
}

func TestValueSemanticsAcrossPropertyNames(t *testing.T) {
	// the receiver copy rule holds whatever the property is called
	for _, prop := range []string{"x", "y", "count", "data", "innerValue", "n9"} {
		input := fmt.Sprintf(`
class Box {
    func ~init(self) {
        self.%[1]s = 1;
    }
    func bump(self) {
        self.%[1]s = self.%[1]s + 1;
        return self.%[1]s;
    }
}
b = new Box();
bumped = b.bump();
bumped - b.%[1]s`, prop)

		result, _ := testEval(t, input)

		// bump saw 2 in its own copy; the caller's b still holds 1
		testNumberValue(t, result, 1)
	}
}

func TestObjectAssignmentCopies(t *testing.T) {
	input := `
class Point {
    func ~init(self, x) {
        self.x = x;
    }
}
a = new Point(1);
b = a;
b.x = 99;
print(a.x, b.x);`

	_, output := testEval(t, input)

	if output != "1 99\n" {
		t.Errorf("output wrong. want=%q, got=%q", "1 99\n", output)
	}
}

func TestArrayValueSemanticsAcrossCalls(t *testing.T) {
	input := `
func smash(xs) {
    xs[0] = 99;
    return xs[0];
}
arr = [1, 2];
smashed = smash(arr);
print(smashed, arr);`

	_, output := testEval(t, input)

	if output != "99 [1, 2]\n" {
		t.Errorf("output wrong. want=%q, got=%q", "99 [1, 2]\n", output)
	}
}

func TestDisplayMethod(t *testing.T) {
	input := `
class Point {
    func ~init(self, x, y) {
        self.x = x;
        self.y = y;
    }
    func ~display(self) {
        return "(" + self.x + ", " + self.y + ")";
    }
}
p = new Point(1, 2);
print(p);`

	_, output := testEval(t, input)

	if output != "(1, 2)\n" {
		t.Errorf("output wrong. want=%q, got=%q", "(1, 2)\n", output)
	}
}

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		input string
		kind  object.ErrorKind
	}{
		{"missing(1)", object.UNDEFINED_ERROR},
		{"new Missing()", object.UNDEFINED_ERROR},
		{"func f(x) { return x; } f()", object.ARITY_ERROR},
		{"func f(x) { return x; } f(1, 2)", object.ARITY_ERROR},
		{"x = 5; x.prop", object.TYPE_ERROR},
		{"x = 5; x.m(1)", object.TYPE_ERROR},
		{"x = 5; x.prop = 1", object.TYPE_ERROR},
		{"x = 5; new x()", object.UNDEFINED_ERROR},
		{"func f(x) { return x; } new f()", object.TYPE_ERROR},
		{"class C {} c = new C(); c.missing", object.PROPERTY_ERROR},
		{"class C {} c = new C(); c.missing(1)", object.PROPERTY_ERROR},
		{"class C { func ~init(self, x) { self.x = x; } } new C()", object.ARITY_ERROR},
		{"class C { func ~init(self, x) { self.x = x; } } new C(1, 2)", object.ARITY_ERROR},
		{
			"class C { func ~init(self) {} func m(self) { return 1; } } c = new C(); c.m(1)",
			object.ARITY_ERROR,
		},
	}

	for _, tt := range tests {
		result, _ := testEval(t, tt.input)
		testErrorValue(t, result, tt.kind)
	}
}

func TestBuiltinArgumentErrorsPropagate(t *testing.T) {
	result, output := testEval(t, "print([1, 2][5]);")

	testErrorValue(t, result, object.INDEX_ERROR)
	if output != "" {
		t.Errorf("print should not have run, got output %q", output)
	}
}

func TestBuiltins(t *testing.T) {
	tests := []struct {
		input    string
		expected interface{}
	}{
		{"len([1, 2, 3])", 3.0},
		{"len([])", 0.0},
		{`len("hello")`, 5.0},
		{`type(5)`, "NUMBER"},
		{`type("x")`, "STRING"},
		{"type([1])", "ARRAY"},
		{"type(null)", "NULL"},
	}

	for _, tt := range tests {
		result, _ := testEval(t, tt.input)

		switch expected := tt.expected.(type) {
		case float64:
			testNumberValue(t, result, expected)
		case string:
			str, ok := result.(*object.String)
			if !ok {
				t.Fatalf("value is %T (%+v), want *object.String", result, result)
			}
			if str.Value != expected {
				t.Errorf("value wrong. want=%q, got=%q", expected, str.Value)
			}
		}
	}
}

func TestBuiltinErrors(t *testing.T) {
	tests := []struct {
		input string
		kind  object.ErrorKind
	}{
		{"len(1, 2)", object.ARITY_ERROR},
		{"len(5)", object.TYPE_ERROR},
		{"type()", object.ARITY_ERROR},
	}

	for _, tt := range tests {
		result, _ := testEval(t, tt.input)
		testErrorValue(t, result, tt.kind)
	}
}

func runProgram(t *testing.T, input string, arg object.Value) (object.Value, string) {
	t.Helper()

	l := lexer.New(input)
	p := parser.New(l, input)
	program := p.ParseProgram()
	if len(p.Errors()) != 0 {
		t.Fatalf("parser errors: %v", p.Errors())
	}

	var out bytes.Buffer
	r := New(&out)
	result := r.Run(program, arg)
	return result, out.String()
}

func TestRunCallsMain(t *testing.T) {
	input := `
func main(args) {
    print("args:", args);
    return len(args);
}`

	args := &object.Array{Elements: []object.Value{
		&object.String{Value: "a.gem"},
		&object.String{Value: "-v"},
	}}
	result, output := runProgram(t, input, args)

	testNumberValue(t, result, 2)
	expected := "args: [\"a.gem\", \"-v\"]\n"
	if output != expected {
		t.Errorf("output wrong. want=%q, got=%q", expected, output)
	}
}

func TestRunMissingMain(t *testing.T) {
	result, _ := runProgram(t, "x = 1;", object.NULL)

	testErrorValue(t, result, object.UNDEFINED_ERROR)
}

func TestRunTopLevelStatements(t *testing.T) {
	input := `
print("setup");
func main(args) {
    print("main");
}`

	_, output := runProgram(t, input, object.NULL)

	expected := "setup\nmain\n"
	if output != expected {
		t.Errorf("output wrong. want=%q, got=%q", expected, output)
	}
}

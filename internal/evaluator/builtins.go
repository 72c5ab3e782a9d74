package evaluator

import (
	"fmt"
	"gem/internal/object"
	"strings"
)

// builtins are consulted before the heap when resolving a call, so a script
// cannot shadow them with its own definitions.
var builtins = map[string]*object.Builtin{
	"print": {
		Name: "print",
		Fn: func(ctx object.BuiltinContext, args ...object.Value) object.Value {
			parts := make([]string, 0, len(args))
			for _, arg := range args {
				parts = append(parts, ctx.Render(arg))
			}
			fmt.Fprintln(ctx.Output(), strings.Join(parts, " "))
			return object.NULL
		},
	},

	"len": {
		Name: "len",
		Fn: func(ctx object.BuiltinContext, args ...object.Value) object.Value {
			if len(args) != 1 {
				return ctx.NewError(object.ARITY_ERROR,
					"wrong number of arguments. got=%d, want=1", len(args))
			}

			switch arg := args[0].(type) {
			case *object.Array:
				return &object.Number{Value: float64(len(arg.Elements))}
			case *object.String:
				return &object.Number{Value: float64(len(arg.Value))}
			default:
				return ctx.NewError(object.TYPE_ERROR,
					"argument to `len` not supported, got %s", args[0].Type())
			}
		},
	},

	"type": {
		Name: "type",
		Fn: func(ctx object.BuiltinContext, args ...object.Value) object.Value {
			if len(args) != 1 {
				return ctx.NewError(object.ARITY_ERROR,
					"wrong number of arguments. got=%d, want=1", len(args))
			}
			return &object.String{Value: string(args[0].Type())}
		},
	},
}

// Package tools holds the tool registry the MCP dispatcher serves from.
//
// # Overview
//
// A tool is an operation declared by a Provider: a method name, markdown
// documentation, an ordered parameter list and a Handler already bound to
// the provider's instance. Registration happens at startup and is
// read-mostly afterwards.
//
// # Naming
//
// External tool names come from Normalize, which lowercases the declared
// method name and inserts '_' before each capital that does not follow
// another capital:
//
//	GetTime    -> get_time
//	ThrowError -> throw_error
//	IOError    -> ioerror
//
// # Schemas
//
// Each descriptor carries an input schema inferred from its parameters when
// it is registered. Parameter kinds come from Go types through Arg and Opt:
//
//	tools.Tool{
//		Method: "Add",
//		Doc:    "Adds two integers.",
//		Params: []tools.Param{tools.Arg[int]("a"), tools.Arg[int]("b")},
//		Handler: func(ctx context.Context, args tools.Args) (any, error) {
//			return args.Int("a") + args.Int("b"), nil
//		},
//	}
//
// yields
//
//	{"type":"object","properties":{"a":{"type":"integer"},"b":{"type":"integer"}},"required":["a","b"]}
//
// Progress parameters (ProgressParam) never appear in the schema; they are
// bound to the reporter supplied by the caller of Bind.
//
// # Binding
//
// Bind matches JSON arguments to parameters by name, converting each value
// to its declared kind. Failures wrap ErrInvalidArgument.
package tools

// ABOUTME: Sample provider with simple tools for smoke-testing MCP clients.
// ABOUTME: Exposes get_time, add, concat and throw_error.

package builtins

import (
	"context"
	"errors"
	"time"

	"github.com/2389/coven-mcp/internal/tools"
)

// DefaultErrorMessage is the message throw_error uses when none is given.
const DefaultErrorMessage = "Intentional error"

// SampleProvider offers a handful of stateless tools.
type SampleProvider struct {
	now func() time.Time
}

// NewSampleProvider creates the sample provider. A nil clock uses time.Now.
func NewSampleProvider(now func() time.Time) *SampleProvider {
	if now == nil {
		now = time.Now
	}
	return &SampleProvider{now: now}
}

// Name implements tools.Provider.
func (p *SampleProvider) Name() string { return "builtin:sample" }

// Tools implements tools.Provider.
func (p *SampleProvider) Tools() []tools.Tool {
	return []tools.Tool{
		{
			Method:  "GetTime",
			Doc:     "Returns the current server time in RFC 3339 format.",
			Handler: p.getTime,
		},
		{
			Method:  "Add",
			Doc:     "Adds two integers and returns the sum.",
			Params:  []tools.Param{tools.Arg[int]("a"), tools.Arg[int]("b")},
			Handler: p.add,
		},
		{
			Method:  "Concat",
			Doc:     "Concatenates two strings.",
			Params:  []tools.Param{tools.Arg[string]("a"), tools.Arg[string]("b")},
			Handler: p.concat,
		},
		{
			Method: "ThrowError",
			Doc: `Always fails with the given message.

Useful for checking how a client renders tool errors.`,
			Params:  []tools.Param{tools.Opt("message", DefaultErrorMessage)},
			Handler: p.throwError,
		},
	}
}

func (p *SampleProvider) getTime(context.Context, tools.Args) (any, error) {
	return p.now().UTC().Format(time.RFC3339), nil
}

func (p *SampleProvider) add(_ context.Context, args tools.Args) (any, error) {
	return args.Int("a") + args.Int("b"), nil
}

func (p *SampleProvider) concat(_ context.Context, args tools.Args) (any, error) {
	return args.String("a") + args.String("b"), nil
}

func (p *SampleProvider) throwError(_ context.Context, args tools.Args) (any, error) {
	return nil, errors.New(args.String("message"))
}

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/podushkina/taskdispatch/internal/dispatch"
)

var ErrBadArgs = errors.New("invalid task arguments")

// Builtin lists the callables the server can register by name.
var Builtin = map[string]dispatch.Func{
	"echo":    Echo,
	"reverse": Reverse,
	"sum":     Sum,
	"slow":    Slow,
}

func Echo(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
	if len(args) == 0 {
		return "echo:", nil
	}
	return fmt.Sprintf("echo: %v", args[0]), nil
}

func Reverse(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("%w: reverse takes one string", ErrBadArgs)
	}
	s, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("%w: reverse takes one string", ErrBadArgs)
	}

	runes := []rune(s)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes), nil
}

func Sum(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
	var sum float64
	for i, a := range args {
		switch n := a.(type) {
		case float64:
			sum += n
		case int:
			sum += float64(n)
		case int64:
			sum += float64(n)
		case json.Number:
			f, err := n.Float64()
			if err != nil {
				return nil, fmt.Errorf("%w: argument %d is not a number", ErrBadArgs, i)
			}
			sum += f
		default:
			return nil, fmt.Errorf("%w: argument %d is not a number", ErrBadArgs, i)
		}
	}
	return sum, nil
}

// Slow waits kwargs["seconds"] (default 5) or until ctx is done.
func Slow(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
	wait := 5 * time.Second
	switch v := kwargs["seconds"].(type) {
	case float64:
		wait = time.Duration(v * float64(time.Second))
	case json.Number:
		if f, err := v.Float64(); err == nil {
			wait = time.Duration(f * float64(time.Second))
		}
	}

	select {
	case <-time.After(wait):
		return fmt.Sprintf("completed after %s", wait), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

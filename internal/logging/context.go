package logging

import "context"

type attrsKey struct{}

// ContextWith returns a copy of ctx carrying args as key–value pairs. Both
// adapters append them to every record logged with that ctx.
func ContextWith(ctx context.Context, args ...any) context.Context {
	if len(args) == 0 {
		return ctx
	}
	prev := attrsFrom(ctx)
	merged := make([]any, 0, len(prev)+len(args))
	merged = append(merged, prev...)
	merged = append(merged, args...)
	return context.WithValue(ctx, attrsKey{}, merged)
}

func attrsFrom(ctx context.Context) []any {
	if ctx == nil {
		return nil
	}
	args, _ := ctx.Value(attrsKey{}).([]any)
	return args
}

// withContextAttrs prepends the ctx-scoped pairs to args.
func withContextAttrs(ctx context.Context, args []any) []any {
	scoped := attrsFrom(ctx)
	if len(scoped) == 0 {
		return args
	}
	out := make([]any, 0, len(scoped)+len(args))
	out = append(out, scoped...)
	return append(out, args...)
}

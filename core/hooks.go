package core

import "context"

// Hook is the single callback contract shared by the transformer, success,
// and error hooks. The transformer receives the raw profile and its result
// replaces it; the success hook receives the final profile and its result is
// discarded; the error hook receives the error value. Hooks run synchronously
// in the calling request's flow and should honor ctx cancellation.
type Hook func(ctx context.Context, v any) (any, error)

// InvokeHook calls h with v and reports whether a hook was actually invoked.
// A nil hook is a no-op with an absent result. Every hook call site routes
// through here so hook-calling semantics are identical everywhere.
func InvokeHook(ctx context.Context, h Hook, v any) (any, bool, error) {
	if h == nil {
		return nil, false, nil
	}
	out, err := h(ctx, v)
	if err != nil {
		return nil, true, err
	}
	return out, true, nil
}

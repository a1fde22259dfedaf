// Package client is a typed Go SDK for the commissions gRPC service.
//
// # Overview
//
// GRPCClient manages one connection, attaches the caller's access token to
// every request through an interceptor and speaks the JSON codec from
// internal/api. Each engine operation has one method taking and returning
// the engine's own types.
//
// # Error Handling
//
// Status errors are turned back into the engine's sentinel errors (see
// api.FromStatus), so callers match them with errors.Is exactly as they
// would against the services package:
//
//	_, err := c.ClaimFunds(ctx, contractID)
//	if errors.Is(err, common.ErrNothingToClaim) { ... }
//
// Transport failures match ErrUnavailable.
package client

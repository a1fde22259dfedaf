// Package common contains shared constants and sentinel errors used across
// the commission engine components.
package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on outbound requests.
const AccessTokenHeaderName = "access_token"

// SystemActorID is recorded as the resolver when the reconciliation engine
// decides a dispute on its own.
const SystemActorID = "system"

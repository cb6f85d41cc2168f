// Package httpapi serves entitlement sessions as a JSON API.
//
// Every request is attributed to a user by a UserExtractor, the X-User-ID
// header by default. Authentication is expected to happen in front of this
// service. Handlers acquire the user's Engine from entitlement.Sessions, so
// the first request of a user loads their entitlements and later requests
// answer from memory.
//
// Responses use the envelope {"data": ...} or {"error": {"code", "message"}}.
// Server-side failures hide the underlying error from the client.
package httpapi

// Package capability issues and redeems signed, expiring retrieval tokens.
//
// A token is an HS256 JWT whose only application claim is the asset id. It is
// not consumed on use and cannot be revoked; it simply stops verifying once
// its expiry passes. The signing secret is supplied once at construction.
package capability

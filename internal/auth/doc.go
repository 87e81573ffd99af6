// Package auth is authgate's authentication and authorisation core.
//
// It is built from small collaborators wired together by the Authenticator:
//   - Password hashing with bcrypt (cost 10); legacy argon2id PHC hashes still verify
//   - Credential Signer issuing HS256 JWTs carrying sub, role, sid, iat and exp
//   - Session Registry recording session ids in Redis with a 24h TTL
//   - Access Policy mapping path prefixes to the roles allowed there
//   - Request Gate turning a path and Authorization header into a Decision
//
// Tokens are trusted on signature and expiry alone. Revoking a session
// deletes its registry entry; the token itself keeps verifying until it
// expires unless the gate is built with WithRevocationCheck.
//
// Two roles exist: USER and ADMIN. The default policy gives /dashboard to
// both and /admin to ADMIN only; an ADMIN landing on /dashboard is sent
// to /admin.
package auth

// Package auth authenticates the single operator account that the Admin
// API issues tokens for. warnbridge has no multi-user or room-scoping
// model: there is exactly one admin account (config.AdminUserConfig),
// its password is hashed with Argon2id, and a successful login returns
// a short-lived JWT access token that the admin API middleware verifies
// on every subsequent request.
package auth

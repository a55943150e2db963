// Package backend is the HypeChain viral attribution service.
//
// Content creators register a piece of media; every wallet that reshares it
// gets a share link whose parent is the link they arrived through. Revenue
// for the content is split across the whole share tree, halving per level.
//
// The code is organized into subpackages:
//
//   - internal/sharetree: rebuilds share forests from flat share rows
//   - internal/revenue: exact integer revenue split
//   - internal/analytics: earnings rollups and the leaderboard
//   - internal/engine: transactional operations over the store
//   - internal/repository: gorm repositories per aggregate
//   - internal/handlers: HTTP handlers for the v1 API
//   - internal/live: websocket activity feed
//   - internal/middleware: request ids, logging, metrics, tracing and rate limits
//   - internal/kernel: dependency wiring and shutdown
//
// Binaries live under cmd/: server, migrate, seed and the hypechain CLI.
package backend

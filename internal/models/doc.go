// Package models defines domain entities for the play logger service.
//
// Two categories of types live here:
//
// 1. Ephemeral records produced and consumed within a single sync pass:
//   - [PlayRecord] : a normalized play event from the history API
//   - [Tokens] : an OAuth token pair from the provider
//
// 2. Persisted shapes mirroring a tenant's backing sheet:
//   - [AppState] : the hidden per-tenant key/value state section
//   - [LogRow] : one row of the visible listening log
//   - [Tenant] : one row of the registry worksheet
//   - [CachedTrack] / [CachedArtist] : hidden raw-entity cache rows
//
// Persisted shapes carry their exact column sets; the repositories package
// owns the translation between structs and sheet rows.
package models

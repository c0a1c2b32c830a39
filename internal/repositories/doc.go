// Package repositories provides structured access to the spreadsheet-backed
// stores: each tenant's sheet (visible log, hidden state, dedupe and raw
// entity cache sections) and the registry sheet driving the outer sync loop.
//
// The backend offers whole-row reads and whole-row replacement only. Every
// read-modify-write here (state updates, registry status updates) can lose a
// concurrent writer's changes; each tenant sheet is assumed single-writer
// per pass and overlapping batch runs are not guarded against.
package repositories

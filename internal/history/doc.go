// Package history keeps a SQLite journal of every transform attempt.
//
// The journal is diagnostic: it records successes, failures and skips with
// their run identifiers so operators can see what a batch or live pass did.
// It never decides whether an image is processed again; that is the ledger's
// job.
package history

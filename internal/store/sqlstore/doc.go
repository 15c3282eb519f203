// Package sqlstore is the local relational store backing mizu's
// identities, contacts, per-pair sessions, and plaintext message
// history, across four tables (identities, contacts, clients,
// messages). It runs on modernc.org/sqlite, a pure-Go SQLite driver,
// so the binary stays cgo-free, following actuallydan-pollis's
// database/sql-based local store.
package sqlstore

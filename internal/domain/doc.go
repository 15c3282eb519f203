// Package domain defines the core data models, state machines and
// collaborator contracts shared across mizu. It contains plain types
// (wire/state) and interfaces (contracts) only — no protocol logic.
package domain

// Package workbench is the application layer the CLI drives.
//
// A Workbench owns the project lock, the store, and the services built on
// it. It turns raw files into segments and cues, runs alignment with the
// configured strategy policy, and fronts review operations (link status,
// character assignment, grouping, propagation, export).
//
// Failures the operator can fix by reselecting or re-importing are tagged
// with ErrPrecondition; Hint turns them into a one-line suggestion.
package workbench

// Package repl runs tradeguard-cli commands interactively, one line at a
// time, with a persistent history file.
package repl

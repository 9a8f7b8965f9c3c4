// Package cmap provides a sharded map safe for concurrent use.
package cmap

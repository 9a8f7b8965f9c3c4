// Package command defines the tradeguard-cli commands on urfave/cli/v2.
//
// Every command except token talks to the daemon's local API through
// connection.HTTPClient and prints the result with the formatter chosen by
// --output. shell runs the same commands line by line.
package command

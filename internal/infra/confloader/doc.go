// Package confloader loads TradeGuard configuration with koanf.
//
// Sources, highest priority first:
//
//  1. Overrides given with WithOverrides (the daemon's -set flag)
//  2. Environment variables (TRADEGUARD_ prefix)
//  3. The YAML configuration file
//  4. Defaults already present in the target struct
//
// Watcher reports edits to the configuration file so the daemon can apply
// reloadable settings without a restart.
package confloader

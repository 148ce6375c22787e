// Package daemon assembles the board from configuration and keeps it in
// step with the filesystem: sound directories, metadata documents edited
// by other padui processes, and the config file.
package daemon

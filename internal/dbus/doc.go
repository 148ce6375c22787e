// Package dbus exposes the board on the session bus as
// io.github.jmylchreest.padui so the CLI, window manager bindings and
// scripts can drive a running paduid. It also provides the Client the CLI
// uses to call it.
package dbus

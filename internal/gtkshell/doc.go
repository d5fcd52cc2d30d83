// Package gtkshell provides the GTK backend of suchanad: layer-shell overlay
// windows for popups and an event loop on the GTK main loop.
package gtkshell

// Package daemon provides the main orchestration for suchanad.
// It owns the notification registry and the event loop it runs on, and
// coordinates configuration hot-reload and internal notices.
package daemon

// Package theme handles popup colour palettes for suchanad.
// It supports loading palettes from $XDG_CONFIG_HOME/suchana/themes/ and
// provides embedded palettes for use when no custom theme is configured.
package theme

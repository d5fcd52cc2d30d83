// Package display manages notification popup surfaces.
// It handles stacking placement, shared-memory pixel buffers, the popup
// lifecycle and the windowing backends popups are presented through.
package display

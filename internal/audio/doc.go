// Package audio plays notification sounds with the beep library. WAV, OGG
// and MP3 files are decoded once, cached, and invalidated when they change
// on disk.
package audio

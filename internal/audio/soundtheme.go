package audio

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
)

// soundThemes are searched in order. Only the freedesktop fallback theme
// is used; suchanad has no setting for a named sound theme.
var soundThemes = []string{"freedesktop"}

// soundExtensions are tried in order for each candidate name.
var soundExtensions = []string{".oga", ".ogg", ".wav", ".mp3"}

// SoundDirs returns the directories sound themes are read from:
// $XDG_DATA_HOME/sounds followed by each $XDG_DATA_DIRS/sounds.
func SoundDirs() []string {
	dirs := []string{filepath.Join(xdg.DataHome, "sounds")}
	for _, dir := range xdg.DataDirs {
		dirs = append(dirs, filepath.Join(dir, "sounds"))
	}
	return dirs
}

// LookupSoundName resolves a sound-name hint such as "message-new-instant"
// to a file in the stereo profile of a sound theme under dirs. When no file
// matches, the name is shortened one dash-separated part at a time
// ("message-new", then "message"). It returns "" if nothing is found.
func LookupSoundName(name string, dirs []string) string {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return ""
	}

	for candidate := name; candidate != ""; candidate = parentSoundName(candidate) {
		for _, dir := range dirs {
			for _, theme := range soundThemes {
				for _, ext := range soundExtensions {
					path := filepath.Join(dir, theme, "stereo", candidate+ext)
					if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
						return path
					}
				}
			}
		}
	}
	return ""
}

func parentSoundName(name string) string {
	i := strings.LastIndexByte(name, '-')
	if i <= 0 {
		return ""
	}
	return name[:i]
}

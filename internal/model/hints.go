package model

// Hints holds the decoded values of a notification's hint dictionary.
// Unknown keys are kept as-is; accessors only look at the keys they know.
type Hints map[string]any

func (h Hints) str(key string) string {
	if s, ok := h[key].(string); ok {
		return s
	}
	return ""
}

func (h Hints) flag(key string) bool {
	if b, ok := h[key].(bool); ok {
		return b
	}
	return false
}

// Urgency extracts the urgency hint.
// Returns UrgencyNormal if not specified or out of range.
func (h Hints) Urgency() int {
	var level int
	switch v := h["urgency"].(type) {
	case byte:
		level = int(v)
	case int32:
		level = int(v)
	case uint32:
		level = int(v)
	case int:
		level = v
	default:
		return UrgencyNormal
	}
	if level < UrgencyLow || level > UrgencyCritical {
		return UrgencyNormal
	}
	return level
}

// Category extracts the category hint.
func (h Hints) Category() string { return h.str("category") }

// DesktopEntry extracts the desktop-entry hint.
func (h Hints) DesktopEntry() string { return h.str("desktop-entry") }

// SoundFile extracts the sound-file hint.
func (h Hints) SoundFile() string { return h.str("sound-file") }

// SoundName extracts the sound-name hint.
func (h Hints) SoundName() string { return h.str("sound-name") }

// SuppressSound returns true if the suppress-sound hint is set.
func (h Hints) SuppressSound() bool { return h.flag("suppress-sound") }

// Resident returns true if the resident hint is set.
// Resident notifications are not closed after an action is invoked.
func (h Hints) Resident() bool { return h.flag("resident") }

// ForegroundColor extracts the fgcolor hint (#RRGGBB).
func (h Hints) ForegroundColor() string { return h.str("fgcolor") }

// BackgroundColor extracts the bgcolor hint (#RRGGBB).
func (h Hints) BackgroundColor() string { return h.str("bgcolor") }

// FrameColor extracts the frame colour, preferring frcolor over hlcolor.
func (h Hints) FrameColor() string {
	if c := h.str("frcolor"); c != "" {
		return c
	}
	return h.str("hlcolor")
}

// Progress extracts the value hint.
// Returns -1 if not present, 0-100 otherwise.
func (h Hints) Progress() int {
	var p int
	switch v := h["value"].(type) {
	case int32:
		p = int(v)
	case uint32:
		p = int(v)
	case int:
		p = v
	case byte:
		p = int(v)
	default:
		return -1
	}
	return min(max(p, 0), 100)
}

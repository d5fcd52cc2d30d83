package audio

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/suchana/internal/config"
	"github.com/jmylchreest/suchana/internal/model"
)

type fakeSink struct {
	mu      sync.Mutex
	inits   int
	rate    beep.SampleRate
	played  []beep.Streamer
	closed  bool
	initErr error
}

func (s *fakeSink) Init(sampleRate beep.SampleRate, bufferSize int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initErr != nil {
		return s.initErr
	}
	s.inits++
	s.rate = sampleRate
	return nil
}

func (s *fakeSink) Play(st beep.Streamer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.played = append(s.played, st)
}

func (s *fakeSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *fakeSink) plays() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.played)
}

// writeWAV writes a short silent mono WAV file.
func writeWAV(t *testing.T, dir, name string, rate beep.SampleRate) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	format := beep.Format{SampleRate: rate, NumChannels: 1, Precision: 2}
	require.NoError(t, wav.Encode(f, beep.Silence(rate.N(50*time.Millisecond)), format))
	return path
}

func TestSupported(t *testing.T) {
	tests := []struct {
		path     string
		expected bool
	}{
		{"bell.wav", true},
		{"bell.WAV", true},
		{"bell.ogg", true},
		{"bell.oga", true},
		{"bell.mp3", true},
		{"bell.flac", false},
		{"bell", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, Supported(tt.path))
		})
	}
}

func TestPlayer_PlayCachesDecodedSound(t *testing.T) {
	sink := &fakeSink{}
	player := NewPlayerWithSink(sink, nil)
	path := writeWAV(t, t.TempDir(), "bell.wav", 22050)

	require.NoError(t, player.Play(path))
	require.NoError(t, player.Play(path))

	assert.Equal(t, 1, sink.inits)
	assert.Equal(t, beep.SampleRate(22050), sink.rate)
	assert.Equal(t, 2, sink.plays())
	assert.True(t, player.Cached(path))

	player.Invalidate(path)
	assert.False(t, player.Cached(path))
}

func TestPlayer_Errors(t *testing.T) {
	dir := t.TempDir()
	player := NewPlayerWithSink(&fakeSink{}, nil)

	assert.NoError(t, player.Play(""))
	assert.Error(t, player.Play(filepath.Join(dir, "missing.wav")))
	assert.Error(t, player.Play(filepath.Join(dir, "bell.flac")))

	garbage := filepath.Join(dir, "garbage.wav")
	require.NoError(t, os.WriteFile(garbage, []byte("not a wav file"), 0o600))
	assert.Error(t, player.Play(garbage))
	assert.False(t, player.Cached(garbage))
}

func TestPlayer_SinkInitFailure(t *testing.T) {
	sink := &fakeSink{initErr: errors.New("no audio device")}
	player := NewPlayerWithSink(sink, nil)
	path := writeWAV(t, t.TempDir(), "bell.wav", 44100)

	err := player.Play(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, sink.initErr)
	assert.Equal(t, 0, sink.plays())
}

func TestPlayer_Volume(t *testing.T) {
	sink := &fakeSink{}
	player := NewPlayerWithSink(sink, nil)
	path := writeWAV(t, t.TempDir(), "bell.wav", 44100)

	player.SetVolume(1.5)
	assert.Equal(t, 1.0, player.Volume())
	require.NoError(t, player.Play(path))
	_, wrapped := sink.played[0].(*effects.Volume)
	assert.False(t, wrapped)

	player.SetVolume(0.5)
	require.NoError(t, player.Play(path))
	vol, wrapped := sink.played[1].(*effects.Volume)
	require.True(t, wrapped)
	assert.InDelta(t, -1.0, vol.Volume, 1e-9)
	assert.False(t, vol.Silent)

	player.SetVolume(-1)
	assert.Equal(t, 0.0, player.Volume())
	require.NoError(t, player.Play(path))
	vol, wrapped = sink.played[2].(*effects.Volume)
	require.True(t, wrapped)
	assert.True(t, vol.Silent)
}

func TestPlayer_Close(t *testing.T) {
	sink := &fakeSink{}
	player := NewPlayerWithSink(sink, nil)
	path := writeWAV(t, t.TempDir(), "bell.wav", 44100)
	require.NoError(t, player.Preload(path))

	player.Close()
	assert.True(t, sink.closed)
	assert.False(t, player.Cached(path))
}

func newTestManager(t *testing.T, cfg *config.DaemonConfig) (*Manager, *fakeSink) {
	t.Helper()
	sink := &fakeSink{}
	m := NewManagerWithPlayer(cfg, NewPlayerWithSink(sink, nil), nil)
	m.async = false
	m.soundDirs = nil
	return m, sink
}

func TestManager_PlayFor(t *testing.T) {
	dir := t.TempDir()
	normal := writeWAV(t, dir, "normal.wav", 44100)
	critical := writeWAV(t, dir, "critical.wav", 44100)
	hinted := writeWAV(t, dir, "hinted.wav", 44100)

	cfg := config.DefaultDaemonConfig()
	cfg.Audio.Enabled = true
	cfg.Audio.Sounds.Normal = normal
	cfg.Audio.Sounds.Critical = critical

	soundsDir := t.TempDir()
	stereo := filepath.Join(soundsDir, "freedesktop", "stereo")
	require.NoError(t, os.MkdirAll(stereo, 0755))
	themed := writeWAV(t, stereo, "message-new.wav", 44100)

	tests := []struct {
		name     string
		hints    model.Hints
		expected string
	}{
		{"normal urgency", model.Hints{}, normal},
		{"critical urgency", model.Hints{"urgency": byte(2)}, critical},
		{"low urgency has no sound", model.Hints{"urgency": byte(0)}, ""},
		{"sound-file hint wins", model.Hints{"urgency": byte(2), "sound-file": hinted}, hinted},
		{"sound-name from theme", model.Hints{"urgency": byte(0), "sound-name": "message-new-instant"}, themed},
		{"sound-file beats sound-name", model.Hints{"sound-file": hinted, "sound-name": "message-new"}, hinted},
		{"unknown sound-name falls back to urgency", model.Hints{"sound-name": "bell-terminal"}, normal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, sink := newTestManager(t, cfg)
			m.soundDirs = []string{soundsDir}
			n := &model.Notification{ID: 1, Hints: tt.hints}

			assert.Equal(t, tt.expected, m.SoundFor(n))
			m.PlayFor(n)
			if tt.expected == "" {
				assert.Equal(t, 0, sink.plays())
			} else {
				assert.Equal(t, 1, sink.plays())
			}
		})
	}
}

func TestManager_Disabled(t *testing.T) {
	cfg := config.DefaultDaemonConfig()
	cfg.Audio.Enabled = false
	cfg.Audio.Sounds.Normal = writeWAV(t, t.TempDir(), "normal.wav", 44100)

	m, sink := newTestManager(t, cfg)
	m.PlayFor(&model.Notification{ID: 1})
	assert.Equal(t, 0, sink.plays())
}

func TestManager_ErrorCallback(t *testing.T) {
	cfg := config.DefaultDaemonConfig()
	cfg.Audio.Enabled = true
	cfg.Audio.Sounds.Normal = filepath.Join(t.TempDir(), "missing.wav")

	m, _ := newTestManager(t, cfg)
	var got error
	m.SetErrorCallback(func(err error) { got = err })

	m.PlayFor(&model.Notification{ID: 1})
	assert.Error(t, got)
}

func TestManager_UpdateConfig(t *testing.T) {
	dir := t.TempDir()
	first := writeWAV(t, dir, "first.wav", 44100)
	second := writeWAV(t, dir, "second.wav", 44100)

	cfg := config.DefaultDaemonConfig()
	cfg.Audio.Enabled = true
	cfg.Audio.Volume = 100
	cfg.Audio.Sounds.Normal = first

	m, _ := newTestManager(t, cfg)
	require.NoError(t, m.Start(context.Background()))
	defer m.Stop()
	assert.True(t, m.player.Cached(first))

	next := *cfg
	next.Audio.Volume = 40
	next.Audio.Sounds.Normal = second
	m.UpdateConfig(&next)

	assert.False(t, m.player.Cached(first))
	assert.True(t, m.player.Cached(second))
	assert.InDelta(t, 0.4, m.player.Volume(), 1e-9)
	assert.Equal(t, second, m.SoundFor(&model.Notification{}))
}

func TestWatcher_InvalidatesChangedSound(t *testing.T) {
	dir := t.TempDir()
	path := writeWAV(t, dir, "bell.wav", 44100)

	player := NewPlayerWithSink(&fakeSink{}, nil)
	require.NoError(t, player.Preload(path))

	w := NewWatcher(player, nil)
	w.Watch(path)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	writeWAV(t, dir, "bell.wav", 22050)

	assert.Eventually(t, func() bool {
		return !player.Cached(path)
	}, 2*time.Second, 20*time.Millisecond)
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	w := NewWatcher(NewPlayerWithSink(&fakeSink{}, nil), nil)
	require.NoError(t, w.Start(context.Background()))
	w.Stop()
	w.Stop()
}

func TestLookupSoundName(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	for _, dir := range []string{first, second} {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "freedesktop", "stereo"), 0755))
	}
	bell := writeWAV(t, filepath.Join(second, "freedesktop", "stereo"), "bell.wav", 44100)
	dialog := writeWAV(t, filepath.Join(first, "freedesktop", "stereo"), "dialog-warning.wav", 44100)
	require.NoError(t, os.WriteFile(filepath.Join(second, "freedesktop", "stereo", "dialog-warning.oga"), nil, 0600))

	dirs := []string{first, second}
	tests := []struct {
		name     string
		expected string
	}{
		{"bell", bell},
		{"bell-window-system", bell},
		{"dialog-warning", dialog},
		{"message", ""},
		{"", ""},
		{"../freedesktop/stereo/bell", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, LookupSoundName(tt.name, dirs))
		})
	}
}

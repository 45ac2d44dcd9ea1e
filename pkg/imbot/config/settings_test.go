package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/imbot/pkg/imbot/config"
	"github.com/randalmurphal/imbot/pkg/imbot/event"
)

func TestLoadSettings_Defaults(t *testing.T) {
	s, err := config.LoadSettings("")
	require.NoError(t, err)

	assert.Equal(t, config.DefaultSettings(), s)

	level, err := s.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, level)
}

func TestLoadSettings_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "imbot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
event:
  show_verbose_events: true
log:
  level: debug
  format: json
bot:
  id: 42
  nick: tester
message_db:
  driver: sqlite
  path: /tmp/messages.db
`), 0o600))

	s, err := config.LoadSettings(path)
	require.NoError(t, err)

	assert.False(t, s.Event.Disabled)
	assert.True(t, s.Event.ShowVerboseEvents)
	assert.Equal(t, "json", s.Log.Format)
	assert.Equal(t, int64(42), s.Bot.ID)
	assert.Equal(t, "tester", s.Bot.Nick)
	assert.Equal(t, "sqlite", s.MessageDB.Driver)
	assert.Equal(t, 1024, s.Profiles.CacheSize, "unset keys keep their defaults")
}

func TestLoadSettings_Env(t *testing.T) {
	t.Setenv("IMBOT_EVENT_DISABLED", "true")
	t.Setenv("IMBOT_EVENT_SHOW_VERBOSE_EVENTS", "true")
	t.Setenv("IMBOT_BOT_NICK", "from env")

	s, err := config.LoadSettings("")
	require.NoError(t, err)

	assert.True(t, s.Event.Disabled)
	assert.True(t, s.Event.ShowVerboseEvents)
	assert.Equal(t, "from env", s.Bot.Nick)
}

func TestLoadSettings_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want error
	}{
		{"log level", map[string]string{"IMBOT_LOG_LEVEL": "loud"}, config.ErrInvalidLogLevel},
		{"log format", map[string]string{"IMBOT_LOG_FORMAT": "xml"}, config.ErrInvalidLogFormat},
		{"driver", map[string]string{"IMBOT_MESSAGE_DB_DRIVER": "redis"}, config.ErrInvalidDriver},
		{"sqlite without path", map[string]string{"IMBOT_MESSAGE_DB_DRIVER": "sqlite"}, config.ErrInvalidDriver},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := config.LoadSettings("")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLoadSettings_MissingFile(t *testing.T) {
	_, err := config.LoadSettings(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSettings_Apply(t *testing.T) {
	b := event.NewBroadcaster(event.BroadcasterConfig{})

	s := config.DefaultSettings()
	s.Event.Disabled = true
	s.Event.ShowVerboseEvents = true
	s.Apply(b)

	assert.True(t, b.Disabled())
	assert.True(t, b.ShowVerboseAlways())

	config.DefaultSettings().Apply(b)
	assert.False(t, b.Disabled())
	assert.False(t, b.ShowVerboseAlways())
}

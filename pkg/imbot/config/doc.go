/*
Package config loads imbot configuration.

# Settings

Settings is the runtime configuration of a process: the pipeline switches,
logging, mock bot defaults and the message database. LoadSettings reads an
optional YAML, JSON or TOML file and IMBOT_* environment variables:

	s, err := config.LoadSettings("imbot.yaml")
	if err != nil {
	    return err
	}
	s.Apply(event.Default()) // IMBOT_EVENT_DISABLED, IMBOT_EVENT_SHOW_VERBOSE_EVENTS

# Scripts

Config wraps a map[string]any decoded from YAML or JSON and offers typed
accessors that fall back to a default on missing keys or type mismatches.
The simulate command reads its session script this way:

	script, err := config.FromFile("session.yaml")
	friends := script.Int64Slice("friends", nil)
	monitor := script.Priority("monitor_priority", event.PriorityMonitor)

Config is safe for concurrent reads. The underlying map is never modified.
*/
package config

package config

import "github.com/xplshn/ttc/pkg/cli"

// SetupFlagGroups registers -W<name>/-Wno-<name> and -F<name>/-Fno-<name> on fs.
// The returned entries are indexed by Warning and Feature respectively.
func (c *Config) SetupFlagGroups(fs *cli.FlagSet) (warningFlags, featureFlags []cli.FlagGroupEntry) {
	for i := Warning(0); i < WarnCount; i++ {
		info := c.Warnings[i]
		warningFlags = append(warningFlags, cli.FlagGroupEntry{
			Name:     info.Name,
			Prefix:   "W",
			Usage:    info.Description,
			Enabled:  new(bool),
			Disabled: new(bool),
		})
	}
	for i := Feature(0); i < FeatCount; i++ {
		info := c.Features[i]
		featureFlags = append(featureFlags, cli.FlagGroupEntry{
			Name:     info.Name,
			Prefix:   "F",
			Usage:    info.Description,
			Enabled:  new(bool),
			Disabled: new(bool),
		})
	}

	fs.AddFlagGroup("Warning Flags", "Enable or disable specific warnings", "warning", "Available Warnings:", warningFlags)
	fs.AddFlagGroup("Feature Flags", "Enable or disable specific features", "feature", "Available Features:", featureFlags)
	return warningFlags, featureFlags
}

// ApplyFlagGroups copies the parsed group switches into the configuration.
// A -Wno-/-Fno- switch wins over its positive form.
func (c *Config) ApplyFlagGroups(warningFlags, featureFlags []cli.FlagGroupEntry) {
	for i, entry := range warningFlags {
		if *entry.Enabled {
			c.SetWarning(Warning(i), true)
		}
		if *entry.Disabled {
			c.SetWarning(Warning(i), false)
		}
	}
	for i, entry := range featureFlags {
		if *entry.Enabled {
			c.SetFeature(Feature(i), true)
		}
		if *entry.Disabled {
			c.SetFeature(Feature(i), false)
		}
	}
}

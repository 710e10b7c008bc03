package config

import (
	"fmt"
	"os"
	"strings"

	"modernc.org/libqbe"
)

type Feature int

const (
	FeatLineComments Feature = iota
	FeatBlockComments
	FeatLineMarkers
	FeatCount
)

type Warning int

const (
	WarnOverflow Warning = iota
	WarnLineComments
	WarnPedantic
	WarnCount
)

type Info struct {
	Name        string
	Enabled     bool
	Description string
}

// Platform selects the object-format conventions of the native emitter.
type Platform int

const (
	PlatformLinux Platform = iota
	PlatformDarwin
)

func (p Platform) String() string {
	if p == PlatformDarwin {
		return "darwin"
	}
	return "linux"
}

const (
	BackendNative = "x86_64"
	BackendQBE    = "qbe"

	DefaultStd    = "c17"
	DefaultOutput = "main.asm"
)

type Config struct {
	Features    map[Feature]Info
	Warnings    map[Warning]Info
	FeatureMap  map[string]Feature
	WarningMap  map[string]Warning
	StdName     string
	TargetName  string
	BackendName string
	Platform    Platform
	QbeTarget   string
	OutputFile  string
}

func NewConfig() *Config {
	cfg := &Config{
		Features:    make(map[Feature]Info),
		Warnings:    make(map[Warning]Info),
		FeatureMap:  make(map[string]Feature),
		WarningMap:  make(map[string]Warning),
		StdName:     DefaultStd,
		OutputFile:  DefaultOutput,
		BackendName: BackendNative,
		TargetName:  BackendNative + "-" + PlatformLinux.String(),
	}

	features := map[Feature]Info{
		FeatLineComments:  {"line-comments", true, "Recognize C99 '//' line comments."},
		FeatBlockComments: {"block-comments", true, "Recognize '/* ... */' block comments."},
		FeatLineMarkers:   {"line-markers", true, "Skip '#' lines left behind by the C preprocessor."},
	}

	warnings := map[Warning]Info{
		WarnOverflow:     {"overflow", true, "Warn when an integer constant does not fit in 'int'."},
		WarnLineComments: {"line-comments", false, "Warn on '//' comments, which C89 does not have."},
		WarnPedantic:     {"pedantic", false, "Issue all warnings demanded by the selected -std."},
	}

	cfg.Features, cfg.Warnings = features, warnings
	for ft, info := range features {
		cfg.FeatureMap[info.Name] = ft
	}
	for wt, info := range warnings {
		cfg.WarningMap[info.Name] = wt
	}

	return cfg
}

// SetTarget resolves a target string into a backend and its settings.
// Accepted forms: "", "x86_64", "x86_64-linux", "x86_64-darwin", "qbe" and "qbe:<qbe target>".
func (c *Config) SetTarget(goos, goarch, target string) error {
	backend, sub, _ := strings.Cut(target, ":")
	if backend == BackendQBE {
		c.BackendName = BackendQBE
		if sub == "" {
			c.QbeTarget = libqbe.DefaultTarget(goos, goarch)
		} else {
			c.QbeTarget = sub
		}
		c.TargetName = BackendQBE + ":" + c.QbeTarget
		return nil
	}

	if sub != "" {
		return fmt.Errorf("unsupported target '%s'", target)
	}

	c.BackendName = BackendNative
	switch backend {
	case "", BackendNative:
		if goos == "darwin" {
			c.Platform = PlatformDarwin
		} else {
			c.Platform = PlatformLinux
		}
		if goarch != "amd64" {
			fmt.Fprintf(os.Stderr, "ttc: info: host architecture '%s' is not x86_64, output will need a cross assembler\n", goarch)
		}
	case "x86_64-linux":
		c.Platform = PlatformLinux
	case "x86_64-darwin":
		c.Platform = PlatformDarwin
	default:
		return fmt.Errorf("unsupported target '%s'. Supported: 'x86_64-linux', 'x86_64-darwin', 'qbe[:<target>]'", target)
	}
	c.TargetName = BackendNative + "-" + c.Platform.String()
	return nil
}

func (c *Config) SetFeature(ft Feature, enabled bool) {
	if info, ok := c.Features[ft]; ok {
		info.Enabled = enabled
		c.Features[ft] = info
	}
}

func (c *Config) IsFeatureEnabled(ft Feature) bool { return c.Features[ft].Enabled }

func (c *Config) SetWarning(wt Warning, enabled bool) {
	if info, ok := c.Warnings[wt]; ok {
		info.Enabled = enabled
		c.Warnings[wt] = info
	}
}

func (c *Config) IsWarningEnabled(wt Warning) bool { return c.Warnings[wt].Enabled }

func (c *Config) ApplyStd(stdName string) error {
	isPedantic := c.IsWarningEnabled(WarnPedantic)

	switch stdName {
	case "c89", "c90":
		c.SetFeature(FeatLineComments, !isPedantic)
		c.SetWarning(WarnLineComments, true)
	case "c99", "c11", "c17":
		c.SetFeature(FeatLineComments, true)
		c.SetWarning(WarnLineComments, false)
	default:
		return fmt.Errorf("unsupported standard '%s'. Supported: 'c89', 'c99', 'c11', 'c17'", stdName)
	}
	c.StdName = stdName
	return nil
}

// ApplyFlag applies one -W/-F style switch, with or without the leading dash.
func (c *Config) ApplyFlag(flag string) error {
	trimmed := strings.TrimPrefix(flag, "-")
	if len(trimmed) < 2 {
		return fmt.Errorf("malformed flag '%s'", flag)
	}

	kind, name := trimmed[0], trimmed[1:]
	enable := true
	if rest, ok := strings.CutPrefix(name, "no-"); ok {
		name, enable = rest, false
	}

	switch kind {
	case 'W':
		if name == "all" {
			for i := Warning(0); i < WarnCount; i++ {
				if i != WarnPedantic {
					c.SetWarning(i, enable)
				}
			}
			return nil
		}
		w, ok := c.WarningMap[name]
		if !ok {
			return fmt.Errorf("unknown warning '%s'", name)
		}
		c.SetWarning(w, enable)
	case 'F':
		f, ok := c.FeatureMap[name]
		if !ok {
			return fmt.Errorf("unknown feature '%s'", name)
		}
		c.SetFeature(f, enable)
	default:
		return fmt.Errorf("malformed flag '%s'", flag)
	}
	return nil
}

// Package config loads modem and transport settings from a YAML file,
// grounded on the example pack's use of gopkg.in/yaml.v3 for exactly
// this kind of small, human-edited settings file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jhan-dev/acoustic-modem/internal/modem"
	"github.com/jhan-dev/acoustic-modem/internal/shared"
	"github.com/jhan-dev/acoustic-modem/internal/transport"
)

// modemSection mirrors modem.Config in YAML-friendly form: frequencies
// and bandwidths as plain numbers, preamble/SFD as lists of byte values,
// parity as a short name rather than an enum value.
type modemSection struct {
	SampleRate        int     `yaml:"sample_rate"`
	BaudRate          int     `yaml:"baud_rate"`
	MarkFreq          float64 `yaml:"mark_freq"`
	SpaceFreq         float64 `yaml:"space_freq"`
	Parity            string  `yaml:"parity"`
	Preamble          []int   `yaml:"preamble"`
	SFD               []int   `yaml:"sfd"`
	SyncThreshold     float64 `yaml:"sync_threshold"`
	AGCEnabled        bool    `yaml:"agc_enabled"`
	PreFilterBandwidth float64 `yaml:"pre_filter_bandwidth"`
	Amplitude         float64 `yaml:"amplitude"`
}

type transportSection struct {
	TimeoutMS      int `yaml:"timeout_ms"`
	MaxRetries     int `yaml:"max_retries"`
	MaxPayloadSize int `yaml:"max_payload_size"`
}

type fileConfig struct {
	Modem     modemSection      `yaml:"modem"`
	Transport transportSection  `yaml:"transport"`
}

// Settings is the pair of configs this repository's two core components
// need: a modem.Config and a transport.Config.
type Settings struct {
	Modem     modem.Config
	Transport transport.Config
}

// Default returns the spec's default physical parameters and transport
// tunables, unmodified by any file.
func Default() Settings {
	return Settings{Modem: modem.DefaultConfig(), Transport: transport.DefaultConfig()}
}

// Load reads a YAML file at path and overlays it onto Default(). A
// field absent from the file keeps its default; a field present in the
// file replaces the default, even when its value is zero or false.
func Load(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("config: reading %s: %w", path, err)
	}

	settings := Default()

	var fc fileConfig
	fc.Modem = modemSectionFromConfig(settings.Modem)
	fc.Transport = transportSection{
		TimeoutMS:      settings.Transport.TimeoutMS,
		MaxRetries:     settings.Transport.MaxRetries,
		MaxPayloadSize: settings.Transport.MaxPayloadSize,
	}

	if err := yaml.Unmarshal(data, &fc); err != nil {
		return Settings{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	modemCfg, err := modemConfigFromSection(fc.Modem)
	if err != nil {
		return Settings{}, fmt.Errorf("config: %s: %w", path, err)
	}

	settings.Modem = modemCfg
	settings.Transport = transport.Config{
		TimeoutMS:      fc.Transport.TimeoutMS,
		MaxRetries:     fc.Transport.MaxRetries,
		MaxPayloadSize: fc.Transport.MaxPayloadSize,
	}
	return settings, nil
}

func modemSectionFromConfig(c modem.Config) modemSection {
	return modemSection{
		SampleRate:         c.SampleRate,
		BaudRate:           c.BaudRate,
		MarkFreq:           c.MarkFreq,
		SpaceFreq:          c.SpaceFreq,
		Parity:             parityToString(c.Parity),
		Preamble:           bytesToInts(c.Preamble),
		SFD:                bytesToInts(c.SFD),
		SyncThreshold:      c.SyncThresh,
		AGCEnabled:         c.AGCEnabled,
		PreFilterBandwidth: c.PreFilterBW,
		Amplitude:          c.Amplitude,
	}
}

func modemConfigFromSection(s modemSection) (modem.Config, error) {
	parity, err := parityFromString(s.Parity)
	if err != nil {
		return modem.Config{}, err
	}
	return modem.Config{
		SampleRate:  s.SampleRate,
		BaudRate:    s.BaudRate,
		MarkFreq:    s.MarkFreq,
		SpaceFreq:   s.SpaceFreq,
		StartBits:   1,
		StopBits:    1,
		Parity:      parity,
		Preamble:    intsToBytes(s.Preamble),
		SFD:         intsToBytes(s.SFD),
		SyncThresh:  s.SyncThreshold,
		AGCEnabled:  s.AGCEnabled,
		PreFilterBW: s.PreFilterBandwidth,
		Amplitude:   s.Amplitude,
	}, nil
}

func parityToString(p shared.Parity) string {
	switch p {
	case shared.ParityEven:
		return "even"
	case shared.ParityOdd:
		return "odd"
	default:
		return "none"
	}
}

func parityFromString(s string) (shared.Parity, error) {
	switch s {
	case "", "none":
		return shared.ParityNone, nil
	case "even":
		return shared.ParityEven, nil
	case "odd":
		return shared.ParityOdd, nil
	default:
		return 0, fmt.Errorf("unknown parity %q", s)
	}
}

func bytesToInts(b []byte) []int {
	out := make([]int, len(b))
	for i, v := range b {
		out[i] = int(v)
	}
	return out
}

func intsToBytes(ints []int) []byte {
	out := make([]byte, len(ints))
	for i, v := range ints {
		out[i] = byte(v)
	}
	return out
}

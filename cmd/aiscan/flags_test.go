package main

import (
	"testing"

	"github.com/a11ysuite/aiscan/internal/config"
	"github.com/stretchr/testify/assert"
)

func defaultFlags() *AppFlags {
	return &AppFlags{
		BatchSize:     config.DefaultBatchSize,
		MiniBatchSize: config.DefaultMiniBatchSize,
		DelaySecs:     config.DefaultDelaySecs,
		StartBatch:    config.DefaultStartBatch,
		setFlags:      make(map[string]bool),
	}
}

func TestApplyFlagOverridesKeepsConfigFileValues(t *testing.T) {
	cfg := config.NewDefaultGlobalConfig()
	cfg.BatchConfig.BatchSize = 50
	cfg.BatchConfig.MiniBatchSize = 3
	cfg.BatchConfig.DelaySecs = 12

	// No flags passed: the config file's batch settings survive.
	applyFlagOverrides(cfg, defaultFlags())

	assert.Equal(t, 50, cfg.BatchConfig.BatchSize)
	assert.Equal(t, 3, cfg.BatchConfig.MiniBatchSize)
	assert.Equal(t, 12, cfg.BatchConfig.DelaySecs)
}

func TestApplyFlagOverridesExplicitFlagWins(t *testing.T) {
	cfg := config.NewDefaultGlobalConfig()
	cfg.BatchConfig.BatchSize = 50
	cfg.BatchConfig.MiniBatchSize = 3

	flags := defaultFlags()
	flags.BatchSize = 25
	flags.setFlags["batch-size"] = true

	applyFlagOverrides(cfg, flags)

	assert.Equal(t, 25, cfg.BatchConfig.BatchSize)
	assert.Equal(t, 3, cfg.BatchConfig.MiniBatchSize)
}

func TestApplyFlagOverridesLogLevel(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(flags *AppFlags)
		cfgLevel  string
		wantLevel string
	}{
		{
			name:      "single-file default stays info",
			mutate:    func(flags *AppFlags) {},
			cfgLevel:  config.DefaultLogLevel,
			wantLevel: "info",
		},
		{
			name:      "verbose wins",
			mutate:    func(flags *AppFlags) { flags.Verbose = true },
			cfgLevel:  config.DefaultLogLevel,
			wantLevel: "debug",
		},
		{
			name:      "quiet wins",
			mutate:    func(flags *AppFlags) { flags.Quiet = true },
			cfgLevel:  config.DefaultLogLevel,
			wantLevel: "warn",
		},
		{
			name:      "directory mode defaults to warn",
			mutate:    func(flags *AppFlags) { flags.InputDir = "/var/spool/aiscan" },
			cfgLevel:  config.DefaultLogLevel,
			wantLevel: "warn",
		},
		{
			name: "directory mode with verbose stays debug",
			mutate: func(flags *AppFlags) {
				flags.InputDir = "/var/spool/aiscan"
				flags.Verbose = true
			},
			cfgLevel:  config.DefaultLogLevel,
			wantLevel: "debug",
		},
		{
			name:      "directory mode keeps a non-default config level",
			mutate:    func(flags *AppFlags) { flags.InputDir = "/var/spool/aiscan" },
			cfgLevel:  "debug",
			wantLevel: "debug",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.NewDefaultGlobalConfig()
			cfg.LogConfig.LogLevel = tt.cfgLevel

			flags := defaultFlags()
			tt.mutate(flags)

			applyFlagOverrides(cfg, flags)
			assert.Equal(t, tt.wantLevel, cfg.LogConfig.LogLevel)
		})
	}
}

func TestValidateFlags(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(flags *AppFlags)
		wantErr bool
	}{
		{
			name:   "input file only",
			mutate: func(flags *AppFlags) { flags.InputFile = "scans.csv" },
		},
		{
			name:    "no input at all",
			mutate:  func(flags *AppFlags) {},
			wantErr: true,
		},
		{
			name:   "check-prerequisites needs no input",
			mutate: func(flags *AppFlags) { flags.CheckPrerequisites = true },
		},
		{
			name: "input and input-dir conflict",
			mutate: func(flags *AppFlags) {
				flags.InputFile = "scans.csv"
				flags.InputDir = "/spool"
			},
			wantErr: true,
		},
		{
			name: "resume and clear-checkpoint conflict",
			mutate: func(flags *AppFlags) {
				flags.InputFile = "scans.csv"
				flags.Resume = true
				flags.ClearCheckpoint = true
			},
			wantErr: true,
		},
		{
			name: "output rejected in directory mode",
			mutate: func(flags *AppFlags) {
				flags.InputDir = "/spool"
				flags.OutputFile = "out.csv"
			},
			wantErr: true,
		},
		{
			name: "mini-batch size above cap",
			mutate: func(flags *AppFlags) {
				flags.InputFile = "scans.csv"
				flags.MiniBatchSize = 11
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flags := defaultFlags()
			tt.mutate(flags)

			err := validateFlags(flags)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

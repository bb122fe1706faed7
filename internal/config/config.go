// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Halcyon Vision

// Package config loads tool configuration from fathom.yaml and defaults.
package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

type AppConfig struct {
	Port        string
	Baud        int
	URL         string
	Username    string
	JournalPath string
	LogPath     string
	LogLevel    string
}

var cfg AppConfig

// Init reads the config file (if present) and applies defaults. Flags may
// still override individual fields afterwards.
func Init() AppConfig {
	home, _ := os.UserHomeDir()
	defaultDir := filepath.Join(home, ".fathom")

	v := viper.New()
	v.SetConfigName("fathom")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath(defaultDir)

	v.SetDefault("device.port", "")
	v.SetDefault("device.baud", 115200)
	v.SetDefault("device.url", "")
	v.SetDefault("device.username", "")
	v.SetDefault("journal.path", filepath.Join(defaultDir, "journal.db"))
	v.SetDefault("log.path", "")
	v.SetDefault("log.level", "info")
	_ = v.ReadInConfig()

	cfg = AppConfig{
		Port:        v.GetString("device.port"),
		Baud:        v.GetInt("device.baud"),
		URL:         v.GetString("device.url"),
		Username:    v.GetString("device.username"),
		JournalPath: v.GetString("journal.path"),
		LogPath:     v.GetString("log.path"),
		LogLevel:    v.GetString("log.level"),
	}
	return cfg
}

func Get() AppConfig { return cfg }

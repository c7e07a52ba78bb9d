// Copyright (C) 2026 Driftline Systems (eng@driftline.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package snapshot

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// MaxConfigFileSize is the maximum allowed config file size (1MB).
// Prevents memory issues from pathological files.
const MaxConfigFileSize = 1024 * 1024

// BackendKind selects the storage backend implementation.
type BackendKind string

const (
	// BackendMemory is the volatile in-process backend.
	BackendMemory BackendKind = "memory"

	// BackendFilesystem stores one file per checkpoint under BasePath.
	BackendFilesystem BackendKind = "filesystem"

	// BackendBadger stores records in an embedded BadgerDB at BasePath.
	BackendBadger BackendKind = "badger"

	// BackendCustom uses a caller-supplied Backend (see WithBackend).
	BackendCustom BackendKind = "custom"
)

// CompressionConfig controls the storage-side gzip filter.
type CompressionConfig struct {
	// Enabled turns on gzip compression of persisted records and the
	// compressed-size metric on created checkpoints.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Level is the gzip level (1-9). Default: 6.
	Level int `yaml:"level" json:"level" validate:"omitempty,min=1,max=9"`
}

// StoreConfig configures a checkpoint Store.
type StoreConfig struct {
	// Backend selects the storage implementation.
	Backend BackendKind `yaml:"backend" json:"backend" validate:"required,oneof=memory filesystem badger custom"`

	// BasePath is the storage directory. Required for the filesystem
	// and badger backends.
	BasePath string `yaml:"base_path" json:"base_path"`

	// MaxCheckpoints caps the number of stored checkpoints.
	// 0 = unlimited.
	MaxCheckpoints int `yaml:"max_checkpoints" json:"max_checkpoints" validate:"min=0"`

	// AutoPrune enables FIFO eviction of the oldest checkpoints after
	// each create once MaxCheckpoints is exceeded. Has no effect when
	// MaxCheckpoints is 0.
	AutoPrune bool `yaml:"auto_prune" json:"auto_prune"`

	// Compression configures the storage gzip filter.
	Compression CompressionConfig `yaml:"compression" json:"compression"`
}

// DefaultStoreConfig returns an in-memory store configuration with no
// eviction and compression disabled.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		Backend:     BackendMemory,
		Compression: CompressionConfig{Level: 6},
	}
}

// validate is the shared validator instance. validator.Validate caches
// struct metadata, so one instance is reused per package.
var validate = validator.New()

// Validate checks field constraints and cross-field rules.
func (c *StoreConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	switch c.Backend {
	case BackendFilesystem, BackendBadger:
		if c.BasePath == "" {
			return fmt.Errorf("%w: base_path is required for %s backend", ErrInvalidInput, c.Backend)
		}
	}
	return nil
}

// LoadStoreConfig reads and validates a StoreConfig from a YAML file.
//
// Inputs:
//
//	path - Path to the YAML file. Must be under MaxConfigFileSize.
//
// Outputs:
//
//	StoreConfig - The parsed configuration with defaults applied.
//	error - Non-nil if the file cannot be read, parsed, or validated.
func LoadStoreConfig(path string) (StoreConfig, error) {
	info, err := os.Stat(path)
	if err != nil {
		return StoreConfig{}, fmt.Errorf("stat config: %w", err)
	}
	if info.Size() > MaxConfigFileSize {
		return StoreConfig{}, fmt.Errorf("%w: config file exceeds %d bytes", ErrInvalidInput, MaxConfigFileSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return StoreConfig{}, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultStoreConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return StoreConfig{}, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Compression.Level == 0 {
		cfg.Compression.Level = 6
	}
	if err := cfg.Validate(); err != nil {
		return StoreConfig{}, err
	}
	return cfg, nil
}

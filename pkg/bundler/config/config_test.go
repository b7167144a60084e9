// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"testing"
	"time"

	"github.com/aumtech/logbundle/pkg/defaults"
)

func TestConfigDefaults(t *testing.T) {
	cfg := NewConfig()

	if cfg.OutputDir() != "." {
		t.Errorf("OutputDir() = %q, want .", cfg.OutputDir())
	}
	if cfg.SizeLimit() != defaults.ArchiveSizeLimit {
		t.Errorf("SizeLimit() = %d, want %d", cfg.SizeLimit(), defaults.ArchiveSizeLimit)
	}
	if cfg.QualifyNames() {
		t.Error("QualifyNames() = true, want false")
	}
	if cfg.IncludeChecksums() {
		t.Error("IncludeChecksums() = true, want false")
	}
	if cfg.Store() {
		t.Error("Store() = true, want false")
	}
	if cfg.Concurrency() != defaults.MatchConcurrency {
		t.Errorf("Concurrency() = %d, want %d", cfg.Concurrency(), defaults.MatchConcurrency)
	}
	if cfg.ToolTimeout() != defaults.ToolTimeout {
		t.Errorf("ToolTimeout() = %v, want %v", cfg.ToolTimeout(), defaults.ToolTimeout)
	}
	if cfg.ToolRate() != 0 {
		t.Errorf("ToolRate() = %v, want 0", cfg.ToolRate())
	}
	if cfg.Version() != "dev" {
		t.Errorf("Version() = %q, want dev", cfg.Version())
	}
}

func TestConfigOptions(t *testing.T) {
	cfg := NewConfig(
		WithOutputDir("/var/tmp"),
		WithSizeLimit(1024),
		WithQualifyNames(true),
		WithIncludeChecksums(true),
		WithStore(true),
		WithConcurrency(8),
		WithToolTimeout(time.Minute),
		WithToolRate(2.5),
		WithVersion("v1.2.3"),
	)

	if cfg.OutputDir() != "/var/tmp" {
		t.Errorf("OutputDir() = %q", cfg.OutputDir())
	}
	if cfg.SizeLimit() != 1024 {
		t.Errorf("SizeLimit() = %d", cfg.SizeLimit())
	}
	if !cfg.QualifyNames() || !cfg.IncludeChecksums() || !cfg.Store() {
		t.Error("boolean options not applied")
	}
	if cfg.Concurrency() != 8 {
		t.Errorf("Concurrency() = %d", cfg.Concurrency())
	}
	if cfg.ToolTimeout() != time.Minute {
		t.Errorf("ToolTimeout() = %v", cfg.ToolTimeout())
	}
	if cfg.ToolRate() != 2.5 {
		t.Errorf("ToolRate() = %v", cfg.ToolRate())
	}
	if cfg.Version() != "v1.2.3" {
		t.Errorf("Version() = %q", cfg.Version())
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{
			name:    "valid default config",
			config:  NewConfig(),
			wantErr: false,
		},
		{
			name:    "size guard disabled",
			config:  NewConfig(WithSizeLimit(0)),
			wantErr: false,
		},
		{
			name:    "timeout disabled",
			config:  NewConfig(WithToolTimeout(0)),
			wantErr: false,
		},
		{
			name:    "empty output dir",
			config:  NewConfig(WithOutputDir("")),
			wantErr: true,
		},
		{
			name:    "negative size limit",
			config:  NewConfig(WithSizeLimit(-1)),
			wantErr: true,
		},
		{
			name:    "zero concurrency",
			config:  NewConfig(WithConcurrency(0)),
			wantErr: true,
		},
		{
			name:    "negative timeout",
			config:  NewConfig(WithToolTimeout(-time.Second)),
			wantErr: true,
		},
		{
			name:    "negative rate",
			config:  NewConfig(WithToolRate(-1)),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

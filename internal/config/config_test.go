package config

import (
	"os"
	"strings"
	"testing"

	"github.com/spf13/viper"
)

// resetViper clears all viper state between tests to avoid cross-contamination.
func resetViper() {
	viper.Reset()
}

func TestLoad_Defaults(t *testing.T) {
	resetViper()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"WorkDir", cfg.WorkDir, "."},
		{"Project", cfg.Project, ""},
		{"IndexMode", cfg.IndexMode, IndexModeRWAR},
		{"CatalogPath", cfg.CatalogPath, ".wzpatch/catalog.db"},
		{"Telemetry", cfg.Telemetry, true},
		{"UI", cfg.UI, UIAuto},
		{"Verbose", cfg.Verbose, false},
		{"Archives.Primary", cfg.Archives.Primary, "ProgramData/WZSound.brsar"},
		{"Archives.SideDir", cfg.Archives.SideDir, "ProgramData/demo"},
		{"Archives.SideExt", cfg.Archives.SideExt, ".brsar"},
		{"Archives.BaseBlank", cfg.Archives.BaseBlank, "ProgramData/BaseBlankFile.brwsd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
			}
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	tests := []struct {
		name   string
		envKey string
		envVal string
		field  func(Config) any
		want   any
	}{
		{
			name:   "work_dir",
			envKey: "WZPATCH_WORK_DIR",
			envVal: "/tmp/wz",
			field:  func(c Config) any { return c.WorkDir },
			want:   "/tmp/wz",
		},
		{
			name:   "project",
			envKey: "WZPATCH_PROJECT",
			envVal: "voices",
			field:  func(c Config) any { return c.Project },
			want:   "voices",
		},
		{
			name:   "index_mode",
			envKey: "WZPATCH_INDEX_MODE",
			envVal: "rwsd",
			field:  func(c Config) any { return c.IndexMode },
			want:   IndexModeRWSD,
		},
		{
			name:   "telemetry",
			envKey: "WZPATCH_TELEMETRY",
			envVal: "false",
			field:  func(c Config) any { return c.Telemetry },
			want:   false,
		},
		{
			name:   "verbose",
			envKey: "WZPATCH_VERBOSE",
			envVal: "true",
			field:  func(c Config) any { return c.Verbose },
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetViper()
			viper.SetEnvPrefix("WZPATCH")
			viper.AutomaticEnv()

			os.Setenv(tt.envKey, tt.envVal)
			defer os.Unsetenv(tt.envKey)

			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load() returned unexpected error: %v", err)
			}
			got := tt.field(cfg)
			if got != tt.want {
				t.Errorf("%s: got %v (%T), want %v (%T)", tt.name, got, got, tt.want, tt.want)
			}
		})
	}
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   any
		wantErr string
	}{
		{"index mode", "index_mode", "zip", "index_mode"},
		{"ui mode", "ui", "gui", "ui"},
		{"empty work dir", "work_dir", "", "work_dir"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetViper()
			viper.Set(tt.key, tt.value)

			_, err := Load()
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

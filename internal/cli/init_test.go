package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/bolasblack/dirsync/internal/config"
	"github.com/bolasblack/dirsync/internal/util"
)

func TestWriteInitConfig(t *testing.T) {
	for _, tmpl := range config.Templates {
		t.Run(string(tmpl), func(t *testing.T) {
			env := util.NewTestEnv()
			path := "/work/" + util.ConfigFilename
			roots := config.Roots{Source: "/home/me/docs", Replica: "/mnt/backup/docs", LogFile: "/var/log/dirsync.log"}

			var out bytes.Buffer
			if err := writeInitConfig(env, &out, path, tmpl, roots); err != nil {
				t.Fatalf("writeInitConfig() error = %v", err)
			}
			if !strings.Contains(out.String(), "Created "+path) {
				t.Errorf("output = %q", out.String())
			}

			cfg, err := config.LoadConfig(env, path)
			if err != nil {
				t.Fatalf("generated config does not load: %v", err)
			}
			if cfg.Source != roots.Source || cfg.Replica != roots.Replica || cfg.LogFile != roots.LogFile {
				t.Errorf("roots = %q %q %q", cfg.Source, cfg.Replica, cfg.LogFile)
			}
			if err := cfg.Validate(); err != nil {
				t.Errorf("generated config is invalid: %v", err)
			}
		})
	}
}

func TestRequiredInput(t *testing.T) {
	if requiredInput("  ") == nil {
		t.Error("blank input should be rejected")
	}
	if err := requiredInput("/src"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

package fslint

import (
	"errors"

	"github.com/golangci/plugin-module-register/register"
	"golang.org/x/tools/go/analysis"
)

func init() {
	register.Plugin("fslint", New)
}

// New creates the fslint plugin for golangci-lint.
func New(settings any) (register.LinterPlugin, error) {
	s, err := register.DecodeSettings[PluginSettings](settings)
	if err != nil {
		return nil, err
	}
	if s.Config == "" {
		return nil, errors.New("fslint: settings.config must point at an fslint config file")
	}
	return &fslintPlugin{settings: s}, nil
}

// PluginSettings are the linters-settings.custom.fslint.settings of
// .golangci.yml.
type PluginSettings struct {
	Config string `json:"config"`
}

type fslintPlugin struct {
	settings PluginSettings
}

func (p *fslintPlugin) BuildAnalyzers() ([]*analysis.Analyzer, error) {
	return []*analysis.Analyzer{newAnalyzer(p.settings.Config)}, nil
}

func (p *fslintPlugin) GetLoadMode() string {
	return register.LoadModeSyntax
}

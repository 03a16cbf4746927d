package config

import (
	"bytes"
	_ "embed"
	"text/template"

	"github.com/cometbft/cometbft/config"
	"github.com/cometbft/cometbft/libs/os"
)

// DefaultDirPerm is the default permissions used when creating directories.
const DefaultDirPerm = 0o700

var appConfigTemplate *template.Template

func init() {
	var err error
	tmpl := template.New("appConfigFileTemplate")
	if appConfigTemplate, err = tmpl.Parse(defaultAppConfigTemplate); err != nil {
		panic(err)
	}
}

// WriteConfigFiles writes config.toml with the CometBFT writer and renders
// app.toml from the template.
func WriteConfigFiles(home string, cfg *Config) {
	config.WriteConfigFile(ConfigFile(home), cfg.Config)

	var buffer bytes.Buffer
	if err := appConfigTemplate.Execute(&buffer, cfg); err != nil {
		panic(err)
	}
	os.MustWriteFile(AppConfigFile(home), buffer.Bytes(), 0o644)
}

// Note: any changes to the comments/variables/mapstructure
// must be reflected in GuardianAppConfig in config/config.go.
//
//go:embed app.toml.tpl
var defaultAppConfigTemplate string

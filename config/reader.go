package config

import (
	"bytes"
	"encoding/json"
	"io"
	"path"
	"reflect"

	"github.com/a8m/envsubst"
	"github.com/go-viper/mapstructure/v2"
	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
)

// Read reads a config from the given file, expanding ${VAR} references from the environment.
// Fields the file leaves out keep their defaults.
func Read(filePath string) (*Config, error) {
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read config %s", filePath)
	}
	cfg, err := FromReader(bytes.NewReader(buf))
	if err != nil {
		return nil, errors.Wrapf(err, "invalid config %s", filePath)
	}
	return cfg, nil
}

// FromReader reads a JSON config, layered over Default. Unknown keys are errors.
func FromReader(r io.Reader) (*Config, error) {
	var raw map[string]interface{}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, errors.Wrap(err, "cannot parse config")
	}

	cfg := Default()
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:     "json",
		Result:      &cfg,
		ErrorUnused: true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, errors.Wrap(err, "cannot decode config")
	}
	return &cfg, nil
}

// Schema returns the JSON schema of the config file.
func Schema() ([]byte, error) {
	reflector := jsonschema.Reflector{RequiredFromJSONSchemaTags: true, Namer: qualifiedName}
	return json.MarshalIndent(reflector.Reflect(&Config{}), "", "  ")
}

// qualifiedName names schema definitions by package so that types sharing a name, like the
// run config and the model config, get distinct definitions.
func qualifiedName(t reflect.Type) string {
	if t.PkgPath() == "" || t.Name() == "" {
		return ""
	}
	return path.Base(t.PkgPath()) + "." + t.Name()
}

package fpconfig

import "gopkg.in/yaml.v3"

// LoadOverlay decodes YAML field overrides onto a copy of base. Fields
// absent from data keep base's value, since yaml.v3 only writes the
// keys it finds into the destination struct.
func LoadOverlay(base Config, data []byte) (Config, error) {
	cfg := base
	if len(data) == 0 {
		return cfg, nil
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Marshal serializes a Config to YAML, mainly for the CLI's
// `fpctl config show` command.
func Marshal(cfg Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}

package policy

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/pddg/sparkly/internal/protocol"
)

var ErrUnsupportedFormat = errors.New("unsupported policy file format")

// Format is the encoding of a policy file.
type Format int

const (
	FormatUnknown Format = iota
	FormatYAML
	FormatTOML
	FormatJSON
)

func (f Format) String() string {
	switch f {
	case FormatYAML:
		return "yaml"
	case FormatTOML:
		return "toml"
	case FormatJSON:
		return "json"
	default:
		return "unknown"
	}
}

// File is the content of a policy file.
//
//	policy:
//	  may_check: true
//	  feed_url: https://example.com/appcast.xml
//	settings:
//	  update_interval: weekly
type File struct {
	Policy   *Static            `json:"policy" yaml:"policy" toml:"policy"`
	Settings *protocol.Settings `json:"settings" yaml:"settings" toml:"settings"`
}

// DetectFormat determines the format by extension, falling back to the content.
func DetectFormat(path string, content []byte) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".toml":
		return FormatTOML
	case ".json":
		return FormatJSON
	}
	return sniffFormat(content)
}

func sniffFormat(content []byte) Format {
	trimmed := strings.TrimSpace(string(content))
	if strings.HasPrefix(trimmed, "{") {
		return FormatJSON
	}
	for _, line := range strings.Split(trimmed, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") || strings.Contains(line, " = ") {
			return FormatTOML
		}
		if strings.Contains(line, ":") {
			return FormatYAML
		}
	}
	return FormatUnknown
}

// envVarPattern matches ${VAR} and ${VAR:-default}.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandEnvVars(content []byte) []byte {
	return envVarPattern.ReplaceAllFunc(content, func(match []byte) []byte {
		parts := envVarPattern.FindSubmatch(match)
		value := os.Getenv(string(parts[1]))
		if value == "" && len(parts[2]) > 0 {
			value = string(parts[2])
		}
		return []byte(value)
	})
}

// Parse decodes a policy file. Environment variables written as ${VAR} or
// ${VAR:-default} are expanded first, so secrets such as the decryption
// password need not be stored in the file. Missing sections are filled with
// Default and protocol.DefaultSettings.
func Parse(content []byte, format Format) (*File, error) {
	content = expandEnvVars(content)
	f := &File{
		Policy:   Default(),
		Settings: ptr(protocol.DefaultSettings()),
	}
	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(content, f)
	case FormatTOML:
		err = toml.Unmarshal(content, f)
	case FormatJSON:
		err = json.Unmarshal(content, f)
	default:
		return nil, fmt.Errorf("policy.Parse: %w", ErrUnsupportedFormat)
	}
	if err != nil {
		return nil, fmt.Errorf("policy.Parse: failed to decode %s: %w", format, err)
	}
	if f.Policy == nil {
		f.Policy = Default()
	}
	if f.Settings == nil {
		f.Settings = ptr(protocol.DefaultSettings())
	}
	if _, err := protocol.ParseUpdateInterval(string(f.Settings.UpdateInterval)); err != nil {
		return nil, fmt.Errorf("policy.Parse: %w", err)
	}
	return f, nil
}

// Load reads and parses the policy file at path.
func Load(path string) (*File, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("policy.Load: failed to read %s: %w", path, err)
	}
	f, err := Parse(content, DetectFormat(path, content))
	if err != nil {
		return nil, fmt.Errorf("policy.Load: %s: %w", path, err)
	}
	return f, nil
}

func ptr[T any](v T) *T {
	return &v
}

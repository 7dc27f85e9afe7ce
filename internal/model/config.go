package model

import (
	"fmt"
	"io"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/encoding/yaml"

	_ "embed"
)

const (
	ToolGolint       = "golint"
	ToolGometalinter = "gometalinter"

	FormatText = "text"
	FormatJSON = "json"

	LogStderr  = "stderr"
	LogStdout  = "stdout"
	LogDiscard = "discard"
)

//go:embed config.cue
var cueSource []byte

var (
	cueCtx *cue.Context
	schema cue.Value
)

func init() {
	if len(cueSource) == 0 {
		panic("variable cueSource is empty")
	}
	cueCtx = cuecontext.New()
	compiled := cueCtx.CompileBytes(cueSource)
	if compiled.Err() != nil {
		panic(compiled.Err())
	}

	schema = compiled.LookupPath(cue.ParsePath("#Config"))
	if schema.Err() != nil {
		panic(schema.Err())
	}
}

type Config struct {
	Version int     `json:"version" yaml:"version"` // fixed 0 for now
	Lint    Lint    `json:"lint" yaml:"lint"`
	Service Service `json:"service" yaml:"service"`
}

// Lint is the configuration snapshot a single lint run is built from.
type Lint struct {
	Tool        string   `json:"tool" yaml:"tool"`                                   // golint | gometalinter | any binary
	Flags       []string `json:"flags,omitempty" yaml:"flags,omitempty"`             // passed to the tool in order
	ToolsGopath string   `json:"toolsGopath,omitempty" yaml:"toolsGopath,omitempty"` // appended to GOPATH for gometalinter
	Workspace   bool     `json:"workspace" yaml:"workspace"`                         // lint whole workspace by default
}

// WithDefaults returns a copy with the tool defaulted to golint.
func (l Lint) WithDefaults() Lint {
	if l.Tool == "" {
		l.Tool = ToolGolint
	}
	l.Flags = append([]string(nil), l.Flags...)
	return l
}

type Service struct {
	Verbose    bool        `json:"verbose" yaml:"verbose"`
	Log        string      `json:"log" yaml:"log"`       // "stderr"|"stdout"|"discard"|path
	Format     string      `json:"format" yaml:"format"` // "text"|"json"
	Dir        string      `json:"dir,omitempty" yaml:"dir,omitempty"`
	Debounce   string      `json:"debounce" yaml:"debounce"`
	Schedule   *Schedule   `json:"schedule,omitempty" yaml:"schedule,omitempty"`
	Metrics    Metrics     `json:"metrics" yaml:"metrics"`
	Repository *Repository `json:"repository,omitempty" yaml:"repository,omitempty"`
}

// DebounceDuration returns the parsed debounce window or 500ms.
func (s Service) DebounceDuration() time.Duration {
	d, err := time.ParseDuration(s.Debounce)
	if err != nil || d <= 0 {
		return 500 * time.Millisecond
	}
	return d
}

// Schedule triggers periodic workspace runs in watch mode. Cron wins when both are set.
type Schedule struct {
	Cron     string `json:"cron,omitempty" yaml:"cron,omitempty"`
	Duration string `json:"duration,omitempty" yaml:"duration,omitempty"` // ISO8601, e.g. PT15M
}

// Repository is a remote collector lint reports are posted to.
type Repository struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	URL     string `json:"url" yaml:"url"`
}

type Metrics struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Addr    string `json:"addr" yaml:"addr"`
}

// DefaultConfig returns the configuration an empty config file decodes to.
func DefaultConfig() Config {
	return Config{
		Lint: Lint{
			Tool: ToolGolint,
		},
		Service: Service{
			Log:      LogStderr,
			Format:   FormatText,
			Debounce: "500ms",
			Metrics: Metrics{
				Addr: ":9090",
			},
		},
	}
}

// LoadConfig validates YAML from r against CUE schema and decodes to Config.
func LoadConfig(r io.Reader) (Config, error) {
	yamlFile, err := yaml.Extract("config.yaml", r)
	if err != nil {
		return Config{}, fmt.Errorf("reading yaml: %w", err)
	}
	yamlValue := cueCtx.BuildFile(yamlFile)

	unified := schema.Unify(yamlValue)
	if err := unified.Validate(
		cue.All(),
		cue.Concrete(true),
	); err != nil {
		return Config{}, err
	}

	var out Config
	if err := unified.Decode(&out); err != nil {
		return Config{}, err
	}

	return out, nil
}

package andersen

import (
	"errors"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"sigs.k8s.io/yaml"
)

// Config controls the solver. The zero value enables both cycle detection
// passes with an unbounded cycle search.
type Config struct {
	// DisableHCD turns off the offline cycle detection pass.
	DisableHCD bool `json:"disableHCD"`
	// DisableLCD turns off cycle detection while solving.
	DisableLCD bool `json:"disableLCD"`
	// CycleSearchLimit bounds the number of nodes visited when searching
	// for a copy cycle through a single edge. Zero means no bound, in
	// which case one search is linear in the size of the graph.
	CycleSearchLimit int `json:"cycleSearchLimit"`

	// Logger receives solver statistics. Defaults to the standard logger.
	Logger log.FieldLogger `json:"-"`
}

func DefaultConfig() Config {
	return Config{}
}

var ErrInvalidConfig = errors.New("invalid configuration")

func (c Config) Validate() error {
	if c.CycleSearchLimit < 0 {
		return fmt.Errorf("%w: negative cycleSearchLimit %d", ErrInvalidConfig, c.CycleSearchLimit)
	}
	return nil
}

func (c Config) logger() log.FieldLogger {
	if c.Logger == nil {
		return log.StandardLogger()
	}
	return c.Logger
}

// LoadConfig reads a YAML configuration file. Unknown fields are rejected.
func LoadConfig(path string) (Config, error) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	return ParseConfig(bytes)
}

func ParseConfig(bytes []byte) (Config, error) {
	c := DefaultConfig()
	if err := yaml.UnmarshalStrict(bytes, &c); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

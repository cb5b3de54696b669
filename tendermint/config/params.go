// Package config loads TendermintParams, the engine's operator-facing
// configuration, the way eth/ethconfig/config.go package-level defaults are
// combined with a loaded override: a var of functional defaults plus a thin
// YAML loader.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/clearmatics/tendercore/tendermint/core"
)

// TendermintParams is the full set of knobs an operator can set for one
// validator node: step-timeout schedule, network queue sizing, and the log
// level the node starts at. Duration fields are YAML integers of
// nanoseconds, matching time.Duration's own underlying int64 shape.
type TendermintParams struct {
	ProposeBase   time.Duration `yaml:"propose_base" mapstructure:"propose_base"`
	ProposeDelta  time.Duration `yaml:"propose_delta" mapstructure:"propose_delta"`
	PrevoteBase   time.Duration `yaml:"prevote_base" mapstructure:"prevote_base"`
	PrevoteDelta  time.Duration `yaml:"prevote_delta" mapstructure:"prevote_delta"`
	PrecommitBase time.Duration `yaml:"precommit_base" mapstructure:"precommit_base"`
	PrecommitDelta time.Duration `yaml:"precommit_delta" mapstructure:"precommit_delta"`

	PeerQueueSize int    `yaml:"peer_queue_size" mapstructure:"peer_queue_size"`
	LogLevel      string `yaml:"log_level" mapstructure:"log_level"`
}

// Default mirrors core.DefaultTimeoutParams with a peer queue size matching
// network.peerQueueCap and an Info log level.
var Default = TendermintParams{
	ProposeBase:    core.DefaultTimeoutParams.ProposeBase,
	ProposeDelta:   core.DefaultTimeoutParams.ProposeDelta,
	PrevoteBase:    core.DefaultTimeoutParams.PrevoteBase,
	PrevoteDelta:   core.DefaultTimeoutParams.PrevoteDelta,
	PrecommitBase:  core.DefaultTimeoutParams.PrecommitBase,
	PrecommitDelta: core.DefaultTimeoutParams.PrecommitDelta,
	PeerQueueSize:  256,
	LogLevel:       "info",
}

// Load reads path, overlaying whatever fields it sets onto Default.
func Load(path string) (TendermintParams, error) {
	p := Default
	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return p, nil
}

// Timeouts converts p into the core.TimeoutParams the worker consumes.
func (p TendermintParams) Timeouts() core.TimeoutParams {
	return core.TimeoutParams{
		ProposeBase:    p.ProposeBase,
		ProposeDelta:   p.ProposeDelta,
		PrevoteBase:    p.PrevoteBase,
		PrevoteDelta:   p.PrevoteDelta,
		PrecommitBase:  p.PrecommitBase,
		PrecommitDelta: p.PrecommitDelta,
	}
}

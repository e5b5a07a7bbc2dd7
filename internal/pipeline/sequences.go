package pipeline

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"cam_backend/internal/leads/domain"
)

//go:embed sequences.yaml
var defaultSequencesYAML []byte

// Duration wraps time.Duration with yaml string parsing ("72h", "3h30m").
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse sequence delay %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Step is one touch in a nurture sequence. Delay is relative to the
// previous step, not to the sequence start.
type Step struct {
	Channel  string   `yaml:"channel"`
	Subject  string   `yaml:"subject"`
	Template string   `yaml:"template"`
	Delay    Duration `yaml:"delay"`
}

// Sequence is a tier-specific nurture cadence.
type Sequence struct {
	ID    string      `yaml:"id"`
	Tier  domain.Tier `yaml:"tier"`
	Steps []Step      `yaml:"steps"`
}

// DueAt returns the absolute due time of a step: the sequence start plus the
// cumulative delays through that step.
func (s Sequence) DueAt(start time.Time, step int) time.Time {
	due := start
	for i := 0; i <= step && i < len(s.Steps); i++ {
		due = due.Add(s.Steps[i].Delay.Std())
	}
	return due
}

// Exhausted reports whether the step counter has run past the last step.
func (s Sequence) Exhausted(step int) bool {
	return step >= len(s.Steps)
}

// SequenceSet maps tiers to their sequences.
type SequenceSet struct {
	Sequences []Sequence `yaml:"sequences"`

	byTier map[domain.Tier]Sequence
	byID   map[string]Sequence
}

// ForTier returns the sequence assigned to a tier.
func (s *SequenceSet) ForTier(tier domain.Tier) (Sequence, bool) {
	seq, ok := s.byTier[tier]
	return seq, ok
}

// ByID returns a sequence by its identifier.
func (s *SequenceSet) ByID(id string) (Sequence, bool) {
	seq, ok := s.byID[id]
	return seq, ok
}

func (s *SequenceSet) index() error {
	s.byTier = make(map[domain.Tier]Sequence, len(s.Sequences))
	s.byID = make(map[string]Sequence, len(s.Sequences))
	for _, seq := range s.Sequences {
		if seq.ID == "" || len(seq.Steps) == 0 {
			return fmt.Errorf("sequence %q: missing id or steps", seq.ID)
		}
		if _, dup := s.byID[seq.ID]; dup {
			return fmt.Errorf("sequence %q: duplicate id", seq.ID)
		}
		s.byTier[seq.Tier] = seq
		s.byID[seq.ID] = seq
	}
	for _, tier := range []domain.Tier{domain.TierHot, domain.TierWarm, domain.TierCool, domain.TierCold} {
		if _, ok := s.byTier[tier]; !ok {
			return fmt.Errorf("no sequence configured for tier %s", tier)
		}
	}
	return nil
}

// DefaultSequences returns the embedded cadence configuration.
func DefaultSequences() *SequenceSet {
	set, err := parseSequences(defaultSequencesYAML)
	if err != nil {
		// The embedded file ships with the binary; failing to parse it is
		// a build defect, not a runtime condition.
		panic(err)
	}
	return set
}

// LoadSequences reads a cadence file, falling back to the embedded defaults
// when path is empty.
func LoadSequences(path string) (*SequenceSet, error) {
	if path == "" {
		return DefaultSequences(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sequences file: %w", err)
	}
	return parseSequences(raw)
}

func parseSequences(raw []byte) (*SequenceSet, error) {
	var set SequenceSet
	if err := yaml.Unmarshal(raw, &set); err != nil {
		return nil, fmt.Errorf("parse sequences: %w", err)
	}
	if err := set.index(); err != nil {
		return nil, err
	}
	return &set, nil
}

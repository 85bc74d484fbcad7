// Package dataset loads the static definitions MedBot runs on: intents with
// their patterns, canned responses and follow-up questions, the known symptom
// set, the symptom to specialty map, the doctor directory and the demo
// accounts. The file may be YAML or JSON; when no path is configured the
// embedded default dataset is used.
package dataset

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultDataset []byte

// ReservedTag is the label the classifier reports for unrecognized input, so
// no intent may use it.
const ReservedTag = "unknown"

var (
	ErrNoIntents = errors.New("dataset has no intents")
	ErrInvalid   = errors.New("invalid dataset")
)

type Intent struct {
	Tag       string   `yaml:"tag"`
	Patterns  []string `yaml:"patterns"`
	Responses []string `yaml:"responses"`
	FollowUp  []string `yaml:"follow_up"`
}

type DoctorRecord struct {
	Name      string   `yaml:"name"`
	Specialty string   `yaml:"specialty"`
	Rating    float64  `yaml:"rating"`
	Slots     SlotList `yaml:"slots"`
}

type Account struct {
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	Role       string `yaml:"role"`
	DoctorName string `yaml:"doctor_name"`
}

type Dataset struct {
	Intents      []Intent                 `yaml:"intents"`
	Symptoms     []string                 `yaml:"symptoms"`
	SpecialtyMap map[string]SpecialtyList `yaml:"specialty_map"`
	Doctors      []DoctorRecord           `yaml:"doctors"`
	Users        []Account                `yaml:"users"`
}

// SlotList accepts either a sequence of slots or a single comma separated
// string ("10:00, 11:00").
type SlotList []string

func (s *SlotList) UnmarshalYAML(node *yaml.Node) error {
	items, err := decodeStringOrList(node, ",")
	if err != nil {
		return fmt.Errorf("slots: %w", err)
	}
	*s = items
	return nil
}

// SpecialtyList accepts either a single specialty or a sequence of them.
type SpecialtyList []string

func (s *SpecialtyList) UnmarshalYAML(node *yaml.Node) error {
	items, err := decodeStringOrList(node, "")
	if err != nil {
		return fmt.Errorf("specialties: %w", err)
	}
	*s = items
	return nil
}

func decodeStringOrList(node *yaml.Node, sep string) ([]string, error) {
	var raw []string
	switch node.Kind {
	case yaml.ScalarNode:
		var v string
		if err := node.Decode(&v); err != nil {
			return nil, err
		}
		if sep != "" {
			raw = strings.Split(v, sep)
		} else {
			raw = []string{v}
		}
	case yaml.SequenceNode:
		if err := node.Decode(&raw); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("expected string or list at line %d", node.Line)
	}

	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out, nil
}

// Default returns the embedded dataset.
func Default() (*Dataset, error) {
	return Parse(defaultDataset)
}

// Load reads the dataset at path, or the embedded default when path is empty.
func Load(path string) (*Dataset, error) {
	clean := strings.TrimSpace(path)
	if clean == "" {
		return Default()
	}
	data, err := os.ReadFile(filepath.Clean(clean))
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", clean, err)
	}
	ds, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", clean, err)
	}
	return ds, nil
}

// Parse decodes YAML (or JSON, which yaml.v3 reads as well) and validates it.
func Parse(data []byte) (*Dataset, error) {
	var ds Dataset
	if err := yaml.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("parse dataset: %w", err)
	}
	ds.normalize()
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return &ds, nil
}

func (d *Dataset) normalize() {
	for i := range d.Intents {
		d.Intents[i].Tag = strings.TrimSpace(d.Intents[i].Tag)
	}
	for i := range d.Symptoms {
		d.Symptoms[i] = strings.TrimSpace(d.Symptoms[i])
	}
	for i := range d.Doctors {
		d.Doctors[i].Name = strings.TrimSpace(d.Doctors[i].Name)
		d.Doctors[i].Specialty = strings.TrimSpace(d.Doctors[i].Specialty)
	}
	for i := range d.Users {
		d.Users[i].Username = strings.TrimSpace(d.Users[i].Username)
		d.Users[i].DoctorName = strings.TrimSpace(d.Users[i].DoctorName)
	}
}

// Validate checks the cross references between sections.
func (d *Dataset) Validate() error {
	if len(d.Intents) == 0 {
		return ErrNoIntents
	}

	tags := make(map[string]bool, len(d.Intents))
	for i, in := range d.Intents {
		switch {
		case in.Tag == "":
			return fmt.Errorf("%w: intent %d has no tag", ErrInvalid, i)
		case in.Tag == ReservedTag:
			return fmt.Errorf("%w: intent tag %q is reserved", ErrInvalid, ReservedTag)
		case tags[in.Tag]:
			return fmt.Errorf("%w: duplicate intent tag %q", ErrInvalid, in.Tag)
		case len(in.Patterns) == 0:
			return fmt.Errorf("%w: intent %q has no patterns", ErrInvalid, in.Tag)
		}
		tags[in.Tag] = true
	}

	for _, s := range d.Symptoms {
		if !tags[s] {
			return fmt.Errorf("%w: symptom %q has no intent", ErrInvalid, s)
		}
	}
	for key := range d.SpecialtyMap {
		if !d.IsSymptom(key) {
			return fmt.Errorf("%w: specialty_map key %q is not a symptom", ErrInvalid, key)
		}
	}

	doctors := make(map[string]bool, len(d.Doctors))
	for i, doc := range d.Doctors {
		switch {
		case doc.Name == "":
			return fmt.Errorf("%w: doctor %d has no name", ErrInvalid, i)
		case doctors[doc.Name]:
			return fmt.Errorf("%w: duplicate doctor %q", ErrInvalid, doc.Name)
		case doc.Specialty == "":
			return fmt.Errorf("%w: doctor %q has no specialty", ErrInvalid, doc.Name)
		case math.IsNaN(doc.Rating) || math.IsInf(doc.Rating, 0):
			return fmt.Errorf("%w: doctor %q has non-finite rating", ErrInvalid, doc.Name)
		case doc.Rating < 0:
			return fmt.Errorf("%w: doctor %q has negative rating", ErrInvalid, doc.Name)
		}
		doctors[doc.Name] = true
	}

	users := make(map[string]bool, len(d.Users))
	for _, u := range d.Users {
		if u.Username == "" {
			return fmt.Errorf("%w: account without username", ErrInvalid)
		}
		if users[u.Username] {
			return fmt.Errorf("%w: duplicate account %q", ErrInvalid, u.Username)
		}
		users[u.Username] = true
		switch u.Role {
		case "Patient", "Admin":
		case "Doctor":
			if !doctors[u.DoctorName] {
				return fmt.Errorf("%w: account %q maps to unknown doctor %q", ErrInvalid, u.Username, u.DoctorName)
			}
		default:
			return fmt.Errorf("%w: account %q has unknown role %q", ErrInvalid, u.Username, u.Role)
		}
	}
	return nil
}

// IsSymptom reports whether tag is in the known symptom set.
func (d *Dataset) IsSymptom(tag string) bool {
	for _, s := range d.Symptoms {
		if s == tag {
			return true
		}
	}
	return false
}

// Intent returns the intent with the given tag.
func (d *Dataset) Intent(tag string) (Intent, bool) {
	for _, in := range d.Intents {
		if in.Tag == tag {
			return in, true
		}
	}
	return Intent{}, false
}

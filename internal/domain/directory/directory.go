package directory

import (
	"errors"
	"fmt"
	"sort"

	"github.com/medbot/medbot/internal/dataset"
	"github.com/medbot/medbot/internal/domain/triage"
	"github.com/medbot/medbot/internal/platform/metrics"
)

var ErrDuplicateDoctor = errors.New("duplicate doctor name")

// Directory is the read-only doctor list plus the symptom to specialty map.
// It is built once at startup and safe for concurrent reads.
type Directory struct {
	doctors     []Doctor
	byName      map[string]int
	specialties map[triage.Label][]string
}

func New(records []dataset.DoctorRecord, specialtyMap map[string]dataset.SpecialtyList) (*Directory, error) {
	d := &Directory{
		doctors:     make([]Doctor, 0, len(records)),
		byName:      make(map[string]int, len(records)),
		specialties: make(map[triage.Label][]string, len(specialtyMap)),
	}
	for _, r := range records {
		if _, dup := d.byName[r.Name]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateDoctor, r.Name)
		}
		d.byName[r.Name] = len(d.doctors)
		d.doctors = append(d.doctors, Doctor{
			Name:      r.Name,
			Specialty: r.Specialty,
			Rating:    r.Rating,
			Slots:     append([]string(nil), r.Slots...),
		})
	}
	for symptom, specs := range specialtyMap {
		d.specialties[triage.Label(symptom)] = append([]string(nil), specs...)
	}
	return d, nil
}

// FromDataset builds the directory from a loaded dataset.
func FromDataset(ds *dataset.Dataset) (*Directory, error) {
	return New(ds.Doctors, ds.SpecialtyMap)
}

// All returns every doctor in directory order.
func (d *Directory) All() []Doctor {
	out := make([]Doctor, len(d.doctors))
	for i, doc := range d.doctors {
		out[i] = doc.clone()
	}
	return out
}

func (d *Directory) Lookup(name string) (Doctor, bool) {
	i, ok := d.byName[name]
	if !ok {
		return Doctor{}, false
	}
	return d.doctors[i].clone(), true
}

// Specialties returns the specialties mapped to symptom, falling back to
// DefaultSpecialty.
func (d *Directory) Specialties(symptom triage.Label) []string {
	if specs, ok := d.specialties[symptom]; ok && len(specs) > 0 {
		return append([]string(nil), specs...)
	}
	return []string{DefaultSpecialty}
}

// Recommend returns up to topN doctors whose specialty matches symptom,
// highest rating first. Equal ratings keep directory order. An empty result
// is not an error.
func (d *Directory) Recommend(symptom triage.Label, topN int) []Doctor {
	if topN <= 0 {
		topN = DefaultTopN
	}
	wanted := make(map[string]bool)
	for _, s := range d.Specialties(symptom) {
		wanted[s] = true
	}

	matches := make([]Doctor, 0, len(d.doctors))
	for _, doc := range d.doctors {
		if wanted[doc.Specialty] {
			matches = append(matches, doc.clone())
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Rating > matches[j].Rating
	})
	if len(matches) > topN {
		matches = matches[:topN]
	}

	if len(matches) == 0 {
		metrics.Recommendations.WithLabelValues("empty").Inc()
	} else {
		metrics.Recommendations.WithLabelValues("found").Inc()
	}
	return matches
}

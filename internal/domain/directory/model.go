package directory

// DefaultSpecialty is used for symptoms missing from the specialty map.
const DefaultSpecialty = "General Physician"

// DefaultTopN is how many doctors Recommend returns when topN <= 0.
const DefaultTopN = 3

// Doctor is one directory entry. Entries are immutable once loaded.
type Doctor struct {
	Name      string   `json:"name"`
	Specialty string   `json:"specialty"`
	Rating    float64  `json:"rating"`
	Slots     []string `json:"slots"`
}

// HasSlot reports whether slot is one of the doctor's time slots.
func (d Doctor) HasSlot(slot string) bool {
	for _, s := range d.Slots {
		if s == slot {
			return true
		}
	}
	return false
}

func (d Doctor) clone() Doctor {
	d.Slots = append([]string(nil), d.Slots...)
	return d
}

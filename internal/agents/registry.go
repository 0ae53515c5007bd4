// Package agents is the static catalog of command-center agents: the
// coordinator and the four specialists it can delegate to.
package agents

// Identity names an agent. The zero value None means "no agent active".
type Identity string

const (
	None              Identity = ""
	Coordinator       Identity = "COORDINATOR"
	MedicalRecords    Identity = "MEDICAL_RECORDS"
	PatientManagement Identity = "PATIENT_MANAGEMENT"
	Appointments      Identity = "APPOINTMENTS"
	Billing           Identity = "BILLING"
)

// Definition is the display metadata for an agent.
type Definition struct {
	Identity    Identity `json:"identity"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Icon        string   `json:"icon"`
	Color       string   `json:"color"`
	// Secure marks agents handling sensitive clinical data. Display only,
	// nothing is enforced with it.
	Secure bool `json:"secure"`
}

var definitions = map[Identity]Definition{
	Coordinator: {
		Identity:    Coordinator,
		Name:        "Koordinator Pusat",
		Description: "Menganalisis maksud & mendelegasikan tugas.",
		Icon:        "ShieldAlert",
		Color:       "#2563EB",
	},
	MedicalRecords: {
		Identity:    MedicalRecords,
		Name:        "Sub-agen Rekam Medis",
		Description: "Akses riwayat medis, lab, diagnosis (Sangat Rahasia).",
		Icon:        "Activity",
		Color:       "#DC2626",
		Secure:      true,
	},
	PatientManagement: {
		Identity:    PatientManagement,
		Name:        "Sub-agen Manajemen Pasien",
		Description: "Pendaftaran & info umum pasien.",
		Icon:        "Database",
		Color:       "#059669",
	},
	Appointments: {
		Identity:    Appointments,
		Name:        "Sub-agen Penjadwal",
		Description: "Booking & modifikasi jadwal.",
		Icon:        "Calendar",
		Color:       "#D97706",
	},
	Billing: {
		Identity:    Billing,
		Name:        "Sub-agen Penagihan",
		Description: "Biaya, klaim asuransi & tagihan.",
		Icon:        "CreditCard",
		Color:       "#9333EA",
	},
}

// specialistOrder is the display order of the specialist grid.
var specialistOrder = []Identity{MedicalRecords, PatientManagement, Appointments, Billing}

// Get returns the definition for id.
func Get(id Identity) (Definition, bool) {
	def, ok := definitions[id]
	return def, ok
}

// MustGet returns the definition for id and panics for unknown identities.
func MustGet(id Identity) Definition {
	def, ok := definitions[id]
	if !ok {
		panic("agents: unknown identity " + string(id))
	}
	return def
}

// Specialists returns the selectable specialists in display order.
// The coordinator is never part of it.
func Specialists() []Definition {
	out := make([]Definition, 0, len(specialistOrder))
	for _, id := range specialistOrder {
		out = append(out, definitions[id])
	}
	return out
}

// All returns the coordinator followed by the specialists.
func All() []Definition {
	return append([]Definition{definitions[Coordinator]}, Specialists()...)
}

// IsSpecialist reports whether id is one of the four specialists.
func (id Identity) IsSpecialist() bool {
	for _, s := range specialistOrder {
		if s == id {
			return true
		}
	}
	return false
}

// DisplayName returns the agent's name, or the raw identity if unknown.
func (id Identity) DisplayName() string {
	if def, ok := definitions[id]; ok {
		return def.Name
	}
	if id == None {
		return "none"
	}
	return string(id)
}

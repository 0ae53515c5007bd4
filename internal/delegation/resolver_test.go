package delegation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/moolen/medidesk/internal/agents"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		function string
		want     agents.Identity
	}{
		{name: "medical records", function: FnMedicalRecords, want: agents.MedicalRecords},
		{name: "patient management", function: FnPatientManagement, want: agents.PatientManagement},
		{name: "appointments", function: FnAppointments, want: agents.Appointments},
		{name: "billing", function: FnBilling, want: agents.Billing},
		{name: "empty", function: "", want: agents.Coordinator},
		{name: "unknown", function: "call-pharmacy", want: agents.Coordinator},
		{name: "case sensitive", function: "CALL-BILLING", want: agents.Coordinator},
		{name: "legacy name", function: "panggil_sub_agen_penagihan", want: agents.Coordinator},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.function))
			assert.Equal(t, Resolve(tt.function), Resolve(tt.function))
			assert.Equal(t, tt.want != agents.Coordinator, Known(tt.function))
		})
	}
}

func TestResolve_CoversEveryDeclaration(t *testing.T) {
	seen := map[agents.Identity]bool{}
	for _, decl := range FunctionDeclarations() {
		id := Resolve(decl.Name)
		assert.True(t, id.IsSpecialist(), decl.Name)
		seen[id] = true
	}
	assert.Len(t, seen, len(agents.Specialists()))
}

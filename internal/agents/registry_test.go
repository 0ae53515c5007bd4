package agents

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_OneDefinitionPerIdentity(t *testing.T) {
	for _, id := range []Identity{Coordinator, MedicalRecords, PatientManagement, Appointments, Billing} {
		def, ok := Get(id)
		require.True(t, ok, id)
		assert.Equal(t, id, def.Identity)
		assert.NotEmpty(t, def.Name)
		assert.NotEmpty(t, def.Icon)
	}

	_, ok := Get(None)
	assert.False(t, ok)
}

func TestRegistry_OnlyMedicalRecordsIsSecure(t *testing.T) {
	for _, def := range All() {
		assert.Equal(t, def.Identity == MedicalRecords, def.Secure, def.Identity)
	}
}

func TestSpecialists_ExcludesCoordinator(t *testing.T) {
	specialists := Specialists()
	require.Len(t, specialists, 4)

	got := make([]Identity, 0, len(specialists))
	for _, s := range specialists {
		assert.NotEqual(t, Coordinator, s.Identity)
		got = append(got, s.Identity)
	}
	assert.Equal(t, []Identity{MedicalRecords, PatientManagement, Appointments, Billing}, got)
}

func TestSpecialists_ReturnsCopy(t *testing.T) {
	first := Specialists()
	first[0].Name = "mutated"
	assert.Equal(t, "Sub-agen Rekam Medis", Specialists()[0].Name)
}

func TestIdentity_Helpers(t *testing.T) {
	assert.True(t, Billing.IsSpecialist())
	assert.False(t, Coordinator.IsSpecialist())
	assert.False(t, None.IsSpecialist())

	assert.Equal(t, "Sub-agen Penagihan", Billing.DisplayName())
	assert.Equal(t, "none", None.DisplayName())
	assert.Equal(t, "ROBOT", Identity("ROBOT").DisplayName())
}

func TestMustGet_PanicsOnUnknown(t *testing.T) {
	assert.Panics(t, func() { MustGet("ROBOT") })
	assert.NotPanics(t, func() { MustGet(Coordinator) })
}

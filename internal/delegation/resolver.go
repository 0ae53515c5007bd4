package delegation

import "github.com/moolen/medidesk/internal/agents"

var functionAgents = map[string]agents.Identity{
	FnMedicalRecords:    agents.MedicalRecords,
	FnPatientManagement: agents.PatientManagement,
	FnAppointments:      agents.Appointments,
	FnBilling:           agents.Billing,
}

// Resolve maps a function name to the specialist that serves it. Unknown
// names, including "", resolve to the coordinator.
func Resolve(functionName string) agents.Identity {
	if id, ok := functionAgents[functionName]; ok {
		return id
	}
	return agents.Coordinator
}

// Known reports whether functionName is one of the delegation functions.
func Known(functionName string) bool {
	_, ok := functionAgents[functionName]
	return ok
}

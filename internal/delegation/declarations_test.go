package delegation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestFunctionDeclarations(t *testing.T) {
	decls := FunctionDeclarations()
	require.Len(t, decls, 4)

	names := make([]string, 0, len(decls))
	for _, d := range decls {
		names = append(names, d.Name)
		assert.NotEmpty(t, d.Description)

		require.NotNil(t, d.Parameters)
		assert.Equal(t, genai.TypeObject, d.Parameters.Type)
		assert.Equal(t, []string{ParamUserRequest}, d.Parameters.Required)
		require.Contains(t, d.Parameters.Properties, ParamUserRequest)
		assert.Equal(t, genai.TypeString, d.Parameters.Properties[ParamUserRequest].Type)
	}
	assert.Equal(t, []string{FnMedicalRecords, FnPatientManagement, FnAppointments, FnBilling}, names)
}

func TestBuildRequest(t *testing.T) {
	contents, config := BuildRequest("Cek riwayat lab pasien")

	require.Len(t, contents, 1)
	assert.Equal(t, genai.RoleUser, contents[0].Role)
	assert.Equal(t, "Cek riwayat lab pasien", contents[0].Parts[0].Text)

	require.NotNil(t, config.SystemInstruction)
	assert.Contains(t, config.SystemInstruction.Parts[0].Text, "PRINSIP SATU PANGGILAN")

	require.Len(t, config.Tools, 1)
	assert.Len(t, config.Tools[0].FunctionDeclarations, 4)

	require.NotNil(t, config.ToolConfig)
	require.NotNil(t, config.ToolConfig.FunctionCallingConfig)
	assert.Equal(t, genai.FunctionCallingConfigModeAny, config.ToolConfig.FunctionCallingConfig.Mode)
}

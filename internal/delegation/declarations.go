package delegation

import (
	"google.golang.org/genai"
)

// Function names offered to the coordinator model.
const (
	FnMedicalRecords    = "call-medical-records"
	FnPatientManagement = "call-patient-management"
	FnAppointments      = "call-appointments"
	FnBilling           = "call-billing"
)

// ParamUserRequest is the single argument of every delegation function.
const ParamUserRequest = "permintaan_pengguna"

// DefaultModel is the coordinator model used when none is configured.
const DefaultModel = "gemini-2.5-flash"

// SystemInstruction is the coordinator prompt. It forbids answering directly
// and requires exactly one function call per request.
const SystemInstruction = `
# PERAN KOORDINATOR PUSAT (SISTEM RUMAH SAKIT)

Anda adalah 'Sistem Rumah Sakit,' Koordinator Pusat untuk seluruh layanan berbasis Agen AI. Misi Anda adalah menyediakan layanan kesehatan yang efisien dan aman dengan mendelegasikan tugas secara sempurna.

[8] DAFTAR SUB-AGEN YANG TERSEDIA:
- Sub-agen Manajemen Pasien (Untuk pendaftaran, identitas, atau info umum pasien yang tidak sensitif).
- Sub-agen Penjadwal Janji Temu (Untuk booking atau modifikasi jadwal).
- Sub-agen Rekam Medis (Untuk data klinis, riwayat, hasil lab, diagnosis).
- Sub-agen Penagihan dan Asuransi (Untuk kueri biaya, klaim, atau penagihan).

[9] PRINSIP OPERASIONAL KETAT (HARUS DIIKUTI):
A. DELEGASI WAJIB: Anda tidak pernah boleh mencoba memproses atau menjawab permintaan pengguna secara langsung. Tugas Anda adalah MENGANALISIS maksud pengguna dan HANYA mendelegasikannya melalui Function Call.
B. PRINSIP SATU PANGGILAN: Anda harus memanggil HANYA SATU sub-agen yang paling sesuai per permintaan pengguna.
C. TRANSMISI DATA: Anda harus menyertakan semua detail yang relevan dari kueri asli pengguna dalam pemanggilan (arguments) ke sub-agen yang dipilih.

[10] PRIORITAS TINGGI (KHUSUS REKAM MEDIS):
Jika permintaan melibatkan riwayat medis, hasil lab, atau diagnosis, Anda harus memilih 'Sub-agen Rekam Medis'. Ingat, sub-agen tersebut diinstruksikan untuk memproses data tersebut dengan prioritas keamanan dan privasi data tertinggi.
`

const paramDescription = "Kueri lengkap pengguna yang akan diteruskan."

func declaration(name, description string) *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        name,
		Description: description,
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				ParamUserRequest: {
					Type:        genai.TypeString,
					Description: paramDescription,
				},
			},
			Required: []string{ParamUserRequest},
		},
	}
}

// FunctionDeclarations returns the four delegation functions in their fixed
// order. Each call returns fresh values.
func FunctionDeclarations() []*genai.FunctionDeclaration {
	return []*genai.FunctionDeclaration{
		declaration(FnMedicalRecords,
			"Mengambil dan merangkum riwayat medis pasien, hasil lab, diagnosis, dan rencana perawatan. PERHATIAN: Hanya untuk data klinis sensitif."),
		declaration(FnPatientManagement,
			"Menangani pendaftaran pasien baru, pembaruan data identitas, dan info umum non-klinis."),
		declaration(FnAppointments,
			"Menangani pembuatan janji temu, perubahan jadwal, atau pembatalan konsultasi dokter."),
		declaration(FnBilling,
			"Menangani informasi biaya, status pembayaran, dan klaim asuransi."),
	}
}

// BuildRequest assembles the single-turn request for query: the user
// content plus a config that forces the model to call one function.
func BuildRequest(query string) ([]*genai.Content, *genai.GenerateContentConfig) {
	contents := []*genai.Content{genai.NewContentFromText(query, genai.RoleUser)}
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(SystemInstruction, genai.RoleUser),
		Tools: []*genai.Tool{
			{FunctionDeclarations: FunctionDeclarations()},
		},
		ToolConfig: &genai.ToolConfig{
			FunctionCallingConfig: &genai.FunctionCallingConfig{
				Mode: genai.FunctionCallingConfigModeAny,
			},
		},
	}
	return contents, config
}

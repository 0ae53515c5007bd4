// Package simulator produces the canned sub-agent replies. There is no
// hospital backend behind the specialists; each returns a fixed text.
package simulator

import "github.com/moolen/medidesk/internal/agents"

// NoResponse is returned for identities without a template.
const NoResponse = "Agen tidak merespons."

var templates = map[agents.Identity]string{
	agents.MedicalRecords: "[SISTEM AMAN] Mengakses basis data Rekam Medis Elektronik (EHR)...\n\n" +
		"Verifikasi otentikasi berhasil.\n\n" +
		"Berdasarkan ID Pasien yang tersirat, berikut ringkasan klinis:\n" +
		"- Diagnosis Terakhir: Bronkitis Akut (ICD-10 J20.9)\n" +
		"- Hasil Lab (Hematologi): Leukosit sedikit meningkat (12.000/uL).\n" +
		"- Rencana: Lanjutkan antibiotik selama 3 hari lagi.\n\n" +
		"*Catatan: Data ini dilindungi enkripsi end-to-end.*",
	agents.Appointments: "[SISTEM JADWAL] Memeriksa slot ketersediaan dokter...\n\n" +
		"- Dr. Budi (Sp.PD): Tersedia Selasa, 10:00 WIB.\n" +
		"- Dr. Siti (Sp.P): Penuh hingga Jumat.\n\n" +
		"Apakah Anda ingin saya memproses booking untuk slot Dr. Budi?",
	agents.Billing: "[SISTEM KEUANGAN] Mengakses data billing...\n\n" +
		"Total tagihan tertunggak: Rp 450.000 (Konsultasi + Obat).\n" +
		"Status Asuransi: BPJS Kesehatan (Aktif).\n\n" +
		"Silakan menuju loket kasir atau gunakan aplikasi mobile untuk pelunasan mandiri.",
	agents.PatientManagement: "[ADMINISTRASI] Data demografis pasien ditemukan.\n\n" +
		"Nama: [DISAMARKAN]\n" +
		"Usia: 45 Tahun\n" +
		"Alamat: Jl. Merdeka No. 10.\n\n" +
		"Data telah diverifikasi dengan Dukcapil. Tidak ada pembaruan data yang tertunda.",
}

// Simulate returns the reply of agent to query. The query does not
// influence the text.
func Simulate(agent agents.Identity, _ string) string {
	if text, ok := templates[agent]; ok {
		return text
	}
	return NoResponse
}

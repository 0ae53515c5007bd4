// Package tui is the interactive command-center console built on Bubble Tea.
package tui

import "github.com/moolen/medidesk/internal/session"

// SnapshotMsg carries a session state change into the program.
type SnapshotMsg struct {
	Snapshot session.Snapshot
}

// sessionClosedMsg is sent when the snapshot stream ends.
type sessionClosedMsg struct{}

// QuickPrompts are offered while the transcript is empty.
var QuickPrompts = []string{
	"Cek status pasien NIK 3273...",
	"Jadwalkan temu dengan Dr. Budi",
	"Berapa tagihan terakhir saya?",
}

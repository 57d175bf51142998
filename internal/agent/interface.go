package agent

import "context"

// Agent adalah interface dasar untuk background job yang dijalankan scheduler.
//
// Contoh implementasi:
//   - SessionSweepAgent: menandai hunt yang sudah lewat batas waktu sebagai timeout
type Agent interface {
	// GetName mengembalikan nama unik agent (untuk logging & identification)
	GetName() string

	// GetSchedule mengembalikan cron schedule string (misal: "@every 5m")
	// Jika agent tidak perlu dijadwalkan (hanya run on-demand), return empty string
	GetSchedule() string

	// Execute menjalankan task utama agent
	// Context digunakan untuk cancellation & timeout
	Execute(ctx context.Context) error
}

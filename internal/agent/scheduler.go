package agent

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// jobTimeout membatasi satu eksekusi terjadwal
const jobTimeout = 2 * time.Minute

// Scheduler bertanggung jawab untuk men-schedule dan manage multiple agents
type Scheduler struct {
	cron   *cron.Cron
	agents []Agent
}

// NewScheduler membuat instance scheduler baru. Job yang masih berjalan tidak dijalankan
// ulang sampai selesai.
func NewScheduler() *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
		agents: make([]Agent, 0),
	}
}

// RegisterAgent mendaftarkan agent baru ke scheduler
// Agent yang memiliki schedule akan otomatis dijadwalkan
func (s *Scheduler) RegisterAgent(agent Agent) error {
	s.agents = append(s.agents, agent)

	schedule := agent.GetSchedule()
	if schedule == "" {
		log.Printf("📝 [%s] Registered as on-demand agent (no schedule)", agent.GetName())
		return nil
	}

	_, err := s.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		log.Printf("🤖 [%s] Starting scheduled job...", agent.GetName())
		if err := agent.Execute(ctx); err != nil {
			log.Printf("❌ [%s] Job failed: %v", agent.GetName(), err)
		} else {
			log.Printf("✅ [%s] Job completed successfully", agent.GetName())
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule agent %s with %q: %w", agent.GetName(), schedule, err)
	}

	log.Printf("📅 [%s] Scheduled with cron: %s", agent.GetName(), schedule)
	return nil
}

// Start menjalankan scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Printf("🚀 Agent Scheduler started with %d registered agents", len(s.agents))
}

// Stop menghentikan scheduler dan menunggu job yang sedang berjalan
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Println("🛑 Agent Scheduler stopped")
}

// RunAgentByName menjalankan agent tertentu secara manual (on-demand)
// Berguna untuk testing atau trigger manual
func (s *Scheduler) RunAgentByName(ctx context.Context, name string) error {
	for _, agent := range s.agents {
		if agent.GetName() == name {
			log.Printf("🎯 [%s] Running on-demand execution...", name)
			return agent.Execute(ctx)
		}
	}
	return fmt.Errorf("agent %q not registered", name)
}

// GetRegisteredAgents mengembalikan daftar semua agent yang terdaftar
func (s *Scheduler) GetRegisteredAgents() []string {
	names := make([]string, len(s.agents))
	for i, agent := range s.agents {
		names[i] = agent.GetName()
	}
	return names
}

package workers

import (
	"chat-relay/contract"
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"
)

var _ contract.Worker = (*StatsWorker)(nil)

// ConnectionCounter exposes the size of the connection registry.
type ConnectionCounter interface {
	OnlineUsers() int
	ConnectionCount() int
}

type Stats struct {
	OnlineUsers int
	Connections int
	RSS         uint64
	CPU         float64
	Status      string
}

// StatsWorker periodically logs registry occupancy next to the process footprint.
type StatsWorker struct {
	log            *slog.Logger
	counter        ConnectionCounter
	metricInterval time.Duration
}

func NewStatsWorker(log *slog.Logger, counter ConnectionCounter, metricInterval time.Duration) *StatsWorker {
	return &StatsWorker{log: log, counter: counter, metricInterval: metricInterval}
}

func (w *StatsWorker) Run(ctx context.Context) error {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			stats, err := w.Collect(p)
			if err != nil {
				w.log.Error("Failed to collect self stats", "err", err)
				continue
			}
			w.log.Info("Relay stats",
				"online_users", stats.OnlineUsers,
				"connections", stats.Connections,
				"rss_bytes", stats.RSS,
				"cpu_percent", stats.CPU,
				"status", stats.Status)
		}
	}
}

func (w *StatsWorker) Collect(p *process.Process) (Stats, error) {
	mem, err := p.MemoryInfo()
	if err != nil {
		return Stats{}, err
	}
	cpu, err := p.CPUPercent()
	if err != nil {
		return Stats{}, err
	}
	status, err := p.Status()
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		OnlineUsers: w.counter.OnlineUsers(),
		Connections: w.counter.ConnectionCount(),
		RSS:         mem.RSS,
		CPU:         cpu,
		Status:      status,
	}, nil
}

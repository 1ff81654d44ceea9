package sandbox

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
)

// Reaper removes abandoned sandbox workspaces. Cleanup normally reclaims a
// workspace at the end of its run; the reaper covers runs whose process died
// before teardown.
type Reaper struct {
	baseDir string
	maxAge  time.Duration
}

func NewReaper(baseDir string, maxAge time.Duration) *Reaper {
	return &Reaper{baseDir: baseDir, maxAge: maxAge}
}

// Start schedules an hourly sweep and returns the running scheduler.
func (r *Reaper) Start() *cron.Cron {
	c := cron.New()

	if _, err := c.AddFunc("@every 1h", func() {
		r.Sweep()
	}); err != nil {
		log.Printf("Failed to create reaper cron job: %v", err)
		return c
	}

	log.Println("Sandbox workspace reaper started (sweeping hourly)")
	c.Start()
	return c
}

// Sweep removes workspace directories older than the configured age.
func (r *Reaper) Sweep() {
	entries, err := os.ReadDir(r.baseDir)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("reaper: failed to read %s: %v", r.baseDir, err)
		}
		return
	}

	cutoff := time.Now().Add(-r.maxAge)
	removed := 0

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}

		path := filepath.Join(r.baseDir, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			log.Printf("reaper: failed to remove %s: %v", path, err)
			continue
		}
		removed++
	}

	if removed > 0 {
		log.Printf("reaper: removed %d stale sandbox workspace(s)", removed)
	}
}

package world

import (
	"context"
	"time"

	"github.com/sorokya/reoserv-sub000/internal/maps"
)

// Run drives the wall clock: the simulation tick fan-out and the periodic
// save sweep. Ticks are fire-and-forget sends into each map's mailbox, so a
// busy map never stalls its neighbours.
func (w *Coordinator) Run(ctx context.Context) error {
	tick := time.NewTicker(w.cfg.World.TickRate)
	defer tick.Stop()
	save := time.NewTicker(w.cfg.World.SaveInterval)
	defer save.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
			for _, m := range w.Maps() {
				m.Send(maps.Tick{})
			}
		case <-save.C:
			w.SaveAll()
		}
	}
}

// SaveAll snapshots every online character and queues the copies for
// persistence. Also the graceful-shutdown path.
func (w *Coordinator) SaveAll() {
	saved := 0
	for _, c := range w.charactersByID() {
		w.saver.Enqueue(c)
		saved++
	}
	if saved > 0 {
		w.log.Info("queued character save sweep", "characters", saved)
	}
}

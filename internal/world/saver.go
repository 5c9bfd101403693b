package world

import (
	"context"
	"log/slog"
	"time"

	"github.com/sorokya/reoserv-sub000/internal/model"
)

// CharacterSaver persists one character. *db.CharacterRepository satisfies
// it.
type CharacterSaver interface {
	Save(ctx context.Context, c *model.Character) error
}

const saveQueueSize = 256

// Saver is the async persistence worker. Sessions and the save sweep hand it
// character snapshots; one goroutine writes them so a slow database never
// blocks an actor.
type Saver struct {
	repo  CharacterSaver
	queue chan *model.Character
	log   *slog.Logger
}

func NewSaver(repo CharacterSaver) *Saver {
	return &Saver{
		repo:  repo,
		queue: make(chan *model.Character, saveQueueSize),
		log:   slog.With("component", "saver"),
	}
}

// Enqueue queues a snapshot. When the queue is full the write happens
// inline: losing a save is worse than briefly blocking the caller.
func (s *Saver) Enqueue(c *model.Character) {
	select {
	case s.queue <- c:
	default:
		s.write(c)
	}
}

// Run drains the queue until the context ends, then flushes what is left.
func (s *Saver) Run(ctx context.Context) error {
	for {
		select {
		case c := <-s.queue:
			s.write(c)
		case <-ctx.Done():
			s.Flush()
			return ctx.Err()
		}
	}
}

// Flush writes everything currently queued.
func (s *Saver) Flush() {
	for {
		select {
		case c := <-s.queue:
			s.write(c)
		default:
			return
		}
	}
}

func (s *Saver) write(c *model.Character) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.repo.Save(ctx, c); err != nil {
		s.log.Error("saving character failed", "character", c.Name, "error", err)
	}
}

package repositories

import (
	"context"
	"log/slog"
	"time"

	"chat-hub/internal/models"
)

const archiveWriteTimeout = 5 * time.Second

// ArchiveWriter moves archive writes off the hub goroutine. Enqueue never
// blocks; completions are reported through the result callback.
type ArchiveWriter struct {
	archive  MessageArchive
	queue    chan models.Message
	onResult func(models.Message, error)
	logger   *slog.Logger
	done     chan struct{}
}

// NewArchiveWriter wraps archive with a queue of the given size.
func NewArchiveWriter(archive MessageArchive, size int, logger *slog.Logger) *ArchiveWriter {
	if size <= 0 {
		size = 256
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ArchiveWriter{
		archive: archive,
		queue:   make(chan models.Message, size),
		logger:  logger.With("component", "archive"),
		done:    make(chan struct{}),
	}
}

// OnResult registers fn to be called after every write attempt. It must be
// set before Run.
func (w *ArchiveWriter) OnResult(fn func(models.Message, error)) {
	w.onResult = fn
}

// Enqueue schedules msg for archiving and reports false if the queue is full.
func (w *ArchiveWriter) Enqueue(msg models.Message) bool {
	select {
	case w.queue <- msg:
		return true
	default:
		w.logger.Warn("archive queue full, dropping message", "message_id", msg.ID)
		return false
	}
}

// Run drains the queue until ctx is cancelled, then flushes what is left.
func (w *ArchiveWriter) Run(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case msg := <-w.queue:
					w.write(context.Background(), msg)
				default:
					return
				}
			}
		case msg := <-w.queue:
			w.write(ctx, msg)
		}
	}
}

// Wait blocks until Run has returned.
func (w *ArchiveWriter) Wait() {
	<-w.done
}

func (w *ArchiveWriter) write(ctx context.Context, msg models.Message) {
	ctx, cancel := context.WithTimeout(ctx, archiveWriteTimeout)
	defer cancel()

	err := w.archive.SaveMessage(ctx, msg)
	if err != nil {
		w.logger.Error("archive write failed", "message_id", msg.ID, "error", err)
	}
	if w.onResult != nil {
		w.onResult(msg, err)
	}
}

package job

import (
	"context"
	"fmt"

	"github.com/deppfellow/bookshelf/internal/lib/email"
	"github.com/deppfellow/bookshelf/internal/model"
	"github.com/hibiken/asynq"
)

// NotifyBookAdded enqueues a TaskBookAdded for book.
func (j *JobService) NotifyBookAdded(ctx context.Context, book model.Book) error {
	task, err := NewBookAddedTask(book)
	if err != nil {
		return fmt.Errorf("failed to build book added task: %w", err)
	}

	info, err := j.Client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("failed to enqueue book added task: %w", err)
	}

	j.logger.Debug().
		Str("task_id", info.ID).
		Str("queue", info.Queue).
		Int64("book_id", book.ID).
		Msg("enqueued book added task")

	return nil
}

func (j *JobService) handleBookAddedTask(ctx context.Context, t *asynq.Task) error {
	var p BookAddedPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("failed to unmarshal book added payload: %w: %w", err, asynq.SkipRetry)
	}

	log := j.logger.With().
		Str("type", TaskBookAdded).
		Int64("book_id", p.BookID).
		Logger()

	if j.emailClient == nil {
		log.Info().Str("title", p.Title).Msg("book added, email notifications disabled")
		return nil
	}

	err := j.emailClient.SendBookAddedEmail(j.notifyEmail, email.BookAdded{
		ID:              p.BookID,
		Title:           p.Title,
		Author:          p.Author,
		PublicationYear: p.PublicationYear,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to send book added email")
		return err
	}

	log.Info().Str("to", j.notifyEmail).Msg("sent book added email")

	return nil
}

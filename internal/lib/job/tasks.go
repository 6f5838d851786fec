package job

import (
	"time"

	"github.com/deppfellow/bookshelf/internal/model"
	"github.com/hibiken/asynq"
	jsoniter "github.com/json-iterator/go"
)

const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"

	// TaskBookAdded announces a newly created book.
	TaskBookAdded = "book:added"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// BookAddedPayload is the JSON body of a TaskBookAdded task.
type BookAddedPayload struct {
	BookID          int64  `json:"book_id"`
	Title           string `json:"title"`
	Author          string `json:"author"`
	PublicationYear int    `json:"publication_year"`
}

// NewBookAddedTask builds the task announcing book.
func NewBookAddedTask(book model.Book) (*asynq.Task, error) {
	payload, err := json.Marshal(BookAddedPayload{
		BookID:          book.ID,
		Title:           book.Title,
		Author:          book.Author,
		PublicationYear: book.PublicationYear,
	})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskBookAdded,
		payload,
		asynq.MaxRetry(3),
		asynq.Queue(QueueDefault),
		asynq.Timeout(30*time.Second),
	), nil
}

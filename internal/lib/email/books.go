package email

import "strconv"

// BookAdded is the data shown in a new-book notification.
type BookAdded struct {
	ID              int64
	Title           string
	Author          string
	PublicationYear int
}

// SendBookAddedEmail tells to that a book joined the collection.
func (c *Client) SendBookAddedEmail(to string, book BookAdded) error {
	return c.SendEmail(
		to,
		"New book added: "+book.Title,
		TemplateBookAdded,
		bookAddedData(book),
	)
}

func bookAddedData(book BookAdded) map[string]string {
	return map[string]string{
		"BookID":          strconv.FormatInt(book.ID, 10),
		"Title":           book.Title,
		"Author":          book.Author,
		"PublicationYear": strconv.Itoa(book.PublicationYear),
	}
}

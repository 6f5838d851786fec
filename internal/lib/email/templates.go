package email

// Template names an HTML file under templates/.
type Template string

const (
	TemplateBookAdded Template = "book_added"
)

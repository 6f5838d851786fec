package email

// PreviewData holds sample data for every template, keyed by template name.
var PreviewData = map[Template]map[string]string{
	TemplateBookAdded: bookAddedData(BookAdded{
		ID:              1,
		Title:           "1984",
		Author:          "George Orwell",
		PublicationYear: 1949,
	}),
}

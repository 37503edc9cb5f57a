package extract

// Extractor reduces one fetched page to the string handed downstream.
// Implementations must be total and safe for concurrent use.
type Extractor interface {
	Extract(page string) string
}

// TextExtractor flattens a page's visible text onto a single line.
type TextExtractor struct{}

func (TextExtractor) Extract(page string) string {
	return ExtractOne(page)
}

// ExtractorFunc adapts a plain function to Extractor.
type ExtractorFunc func(page string) string

func (f ExtractorFunc) Extract(page string) string {
	return f(page)
}

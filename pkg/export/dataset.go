package export

// Dataset defines tabular export content. Rows are positional against Headers.
type Dataset struct {
	Title   string
	Headers []string
	Rows    [][]string
	Footer  []string
}

// Renderer turns a dataset into a downloadable document.
type Renderer interface {
	Render(data Dataset) ([]byte, error)
	ContentType() string
	Extension() string
}

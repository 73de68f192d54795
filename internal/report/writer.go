package report

// Writer renders a crawl Summary and returns the number of bytes written.
type Writer interface {
	Write(s *Summary) (int, error)
}

// WriterFunc adapts a function to Writer.
type WriterFunc func(s *Summary) (int, error)

func (f WriterFunc) Write(s *Summary) (int, error) { return f(s) }

// MultiWriter renders one summary through each of its Writers in order and
// stops at the first failure.
type MultiWriter []Writer

// NewMultiWriter returns a MultiWriter over writers.
func NewMultiWriter(writers ...Writer) MultiWriter {
	return MultiWriter(writers)
}

func (m MultiWriter) Write(s *Summary) (n int, err error) {
	for _, w := range m {
		written, werr := w.Write(s)
		n += written
		if werr != nil {
			return n, werr
		}
	}
	return n, nil
}

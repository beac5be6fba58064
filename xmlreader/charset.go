package xmlreader

import (
	"fmt"
	"io"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

// CharsetReader decodes input in the named charset to UTF-8. Labels are
// looked up in the WHATWG encoding index, so the common aliases such as
// latin1, ISO-8859-1 and Shift_JIS are accepted.
func CharsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported encoding %q: %w", label, err)
	}
	if enc == unicode.UTF8 {
		return input, nil
	}
	return enc.NewDecoder().Reader(input), nil
}

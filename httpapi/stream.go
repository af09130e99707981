package httpapi

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/corvus-sh/orchd/corvuserr"
)

// writeStreamedRecord writes one record of the §6.2 length-prefixed JSON
// stream format: "<decimal-length>\n<json-blob>\n". Marshal errors are
// swallowed -- a progress event that fails to encode just doesn't appear in
// the stream, it does not abort an already-200'd response.
func writeStreamedRecord(w io.Writer, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "%d\n%s\n", len(data), data)
}

func missingRefErr() error {
	return corvuserr.New(corvuserr.BadInput, "missing required image ref query parameter")
}

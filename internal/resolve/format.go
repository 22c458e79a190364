// internal/resolve/format.go
package resolve

import (
	"fmt"
	"strconv"

	"github.com/tamzrod/solaredge-bridge/internal/schema"
)

// number prints in plain decimal for %v and keeps float verbs working.
type number float64

func (n number) String() string {
	return strconv.FormatFloat(float64(n), 'f', -1, 64)
}

func render(f schema.Format, values ...any) string {
	args := make([]any, len(values))
	for i, v := range values {
		if x, ok := v.(float64); ok {
			args[i] = number(x)
			continue
		}
		args[i] = v
	}
	return fmt.Sprintf(string(f), args...)
}

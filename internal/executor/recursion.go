package executor

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	errUtils "github.com/joat-cli/joat/pkg/errors"
)

// RecursionCountVar carries the self-invocation depth to child processes.
const RecursionCountVar = "JOAT_RECURSION_COUNT"

// NextRecursionCount reads the depth of this invocation from env and returns
// the depth to hand to a child. It fails when the depth is above max.
func NextRecursionCount(env Environment, max int) (int, error) {
	count := 0
	if raw, ok := env.Get(RecursionCountVar); ok && strings.TrimSpace(raw) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return 0, errors.Newf("%s should be an integer, got %q", RecursionCountVar, raw)
		}
		count = n
	}

	if count > max {
		return 0, errors.WithHint(
			errors.Wrapf(errUtils.ErrRecursionLimit, "max_recursion_count is %d", max),
			"Check for infinite loops in your configuration or increase max_recursion_count")
	}
	return count + 1, nil
}

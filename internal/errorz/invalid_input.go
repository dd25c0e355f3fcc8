package errorz

import "strings"

// InvalidInput collects the validation failures of a single input. It
// unwraps to the individual errors so callers can match on them.
type InvalidInput []error

func (e InvalidInput) Error() string {
	msgs := make([]string, 0, len(e)+1)
	msgs = append(msgs, "invalid input:")
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "\n") + "\n"
}

func (e InvalidInput) Unwrap() []error {
	return e
}

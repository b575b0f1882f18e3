package answer

import "fmt"

// ParseFailureMessage is the validation message shown when stored question
// data cannot be decoded.
const ParseFailureMessage = "failed to parse question data"

// DataIntegrityError indicates that a stored payload (correct answer or
// answer template) is malformed.
type DataIntegrityError struct {
	Payload string // "correct answer" or "answer template"
	Err     error
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("malformed %s: %v", e.Payload, e.Err)
}

func (e *DataIntegrityError) Unwrap() error { return e.Err }

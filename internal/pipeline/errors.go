package pipeline

import (
	"errors"
	"fmt"
)

// ErrorKind tags a pipeline failure so the presentation layer can branch on
// kind instead of matching error strings.
type ErrorKind string

const (
	KindDecode     ErrorKind = "DECODE_ERROR"      // malformed PDF/image bytes or unsupported extension
	KindOCR        ErrorKind = "OCR_ERROR"         // recognition engine failed
	KindLLMRequest ErrorKind = "LLM_REQUEST_ERROR" // network, auth, context-length
	KindLLMParse   ErrorKind = "LLM_PARSE_ERROR"   // non-JSON or schema-violating reply
)

// StageError wraps a stage failure with its kind. Fatal to the request:
// no retry, no partial result.
type StageError struct {
	Kind ErrorKind
	Err  error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// KindOf returns the tag of a pipeline error, or "" for foreign errors.
func KindOf(err error) ErrorKind {
	var se *StageError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

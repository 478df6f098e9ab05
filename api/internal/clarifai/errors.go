package clarifai

import "fmt"

type ErrKind string

const (
	ErrKindTransport ErrKind = "transport"
	ErrKindStatus    ErrKind = "status"
	ErrKindDecode    ErrKind = "decode"
)

// PredictError описывает, почему запрос не дал Response.
type PredictError struct {
	Kind       ErrKind
	StatusCode int
	Body       string
	Err        error
}

func (e *PredictError) Error() string {
	switch e.Kind {
	case ErrKindStatus:
		return fmt.Sprintf("clarifai %d: %s", e.StatusCode, e.Body)
	case ErrKindDecode:
		return fmt.Sprintf("clarifai: response is not json (status %d): %s", e.StatusCode, e.Body)
	default:
		return fmt.Sprintf("clarifai: %v", e.Err)
	}
}

func (e *PredictError) Unwrap() error { return e.Err }

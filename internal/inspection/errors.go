package inspection

import "fmt"

// ParseError marks stage output that failed JSON decoding or schema
// validation. Parse failures are retryable within the stage's retry budget;
// any other error terminates the run.
type ParseError struct {
	Stage string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s stage output invalid: %v", e.Stage, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

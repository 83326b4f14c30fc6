package detect

import "fmt"

// ForeignCallError reports a failed call across the engine boundary.
type ForeignCallError struct {
	Op  string
	Err error
}

func (e *ForeignCallError) Error() string {
	return fmt.Sprintf("engine %s: %v", e.Op, e.Err)
}

func (e *ForeignCallError) Unwrap() error { return e.Err }

func foreign(op string, err error) error {
	if err == nil {
		return nil
	}
	return &ForeignCallError{Op: op, Err: err}
}

// guard runs fn and converts a panic into a ForeignCallError.
func guard(op string, fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &ForeignCallError{Op: op, Err: fmt.Errorf("panic: %v", p)}
		}
	}()
	return foreign(op, fn())
}

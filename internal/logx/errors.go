package logx

import "fmt"

// Errorf formats an error, mirroring the teacher's logx.Errorf convenience.
func Errorf(format string, args ...any) error {
	return fmt.Errorf(format, args...)
}

// Wrap attaches context to err in the standard "%w" style.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

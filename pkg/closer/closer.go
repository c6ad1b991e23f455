// Package closer aggregates shutdown of long-lived resources.
package closer

import "errors"

type (
	Closer interface {
		Close() error
	}

	CloserGroup struct {
		closers []Closer
	}
)

func NewCloserGroup(closers ...Closer) *CloserGroup {
	return &CloserGroup{
		closers: closers,
	}
}

// Add registers another resource to close on shutdown.
func (c *CloserGroup) Add(closer Closer) {
	c.closers = append(c.closers, closer)
}

// Close closes every registered resource, joining all errors so one
// failing resource does not skip the rest.
func (c *CloserGroup) Close() error {
	var errs []error

	for _, closer := range c.closers {
		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

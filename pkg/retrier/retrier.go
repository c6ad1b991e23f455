// Package retrier provides small retry helpers for flaky operations:
// Do for side-effecting calls, Connect and MultiConnects for dialing.
package retrier

import "time"

// Do runs op up to attempts times, sleeping the given number of seconds
// between failures. Returns nil on the first success, otherwise the
// last error.
func Do(attempts uint8, sleep uint, op func() error) error {
	var err error

	for i := uint8(0); i < attempts; i++ {
		if err = op(); err == nil {
			return nil
		}

		if i+1 < attempts {
			time.Sleep(time.Duration(sleep) * time.Second)
		}
	}

	return err
}

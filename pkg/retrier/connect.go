package retrier

import "time"

// Connect attempts to establish a connection of type T, retrying on
// failure with a fixed sleep in seconds between attempts. Returns the
// first successful connection or the last error.
func Connect[T any](retry uint8, sleep uint, connector func() (T, error)) (T, error) {
	var (
		out T
		err error
	)

	for i := uint8(0); i < retry; i++ {
		out, err = connector()
		if err == nil {
			return out, nil
		}

		if i+1 < retry {
			time.Sleep(time.Duration(sleep) * time.Second)
		}
	}

	return out, err
}

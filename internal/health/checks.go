package health

import (
	"context"
	"errors"
	"fmt"
)

// QueueSaturation fails once depth() reaches threshold (0..1) of capacity.
func QueueSaturation(depth func() int, capacity int, threshold float64) CheckFunc {
	return func(context.Context) error {
		if capacity <= 0 {
			return nil
		}
		d := depth()
		if float64(d) >= threshold*float64(capacity) {
			return fmt.Errorf("queue at %d of %d", d, capacity)
		}
		return nil
	}
}

// Secret fails when a required secret is empty.
func Secret(required bool, value, name string) CheckFunc {
	return func(context.Context) error {
		if required && value == "" {
			return errors.New(name + " is required but not configured")
		}
		return nil
	}
}

package headless

import (
	"context"
	"errors"

	"github.com/ethoscan/evidence-resolver/internal/resolver"
)

// Noop is the renderer used when headless rendering is disabled.
type Noop struct{}

// Fetch always fails; callers treat the failure as "no rendered markup".
func (Noop) Fetch(context.Context, resolver.FetchRequest) (resolver.FetchResponse, error) {
	return resolver.FetchResponse{}, errors.New("headless rendering is disabled")
}

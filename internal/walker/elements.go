package walker

import (
	"context"
	"fmt"
	"time"

	"github.com/everstacklabs/librarian/internal/render"
)

// pageElements exposes a rendered page to the selector-based extractors.
type pageElements struct {
	page render.Page
}

func (e pageElements) Texts(ctx context.Context, selector string) ([]string, error) {
	elems, err := e.page.QueryAll(ctx, selector)
	if err != nil {
		return nil, err
	}
	texts := make([]string, 0, len(elems))
	for _, el := range elems {
		t, err := el.Text()
		if err != nil {
			return nil, fmt.Errorf("reading element text: %w", err)
		}
		texts = append(texts, t)
	}
	return texts, nil
}

func (e pageElements) RequestExpansion(ctx context.Context, trigger string) error {
	return e.page.Click(ctx, trigger)
}

// AwaitStable waits for region, or sleeps the whole timeout when no region
// selector is configured.
func (e pageElements) AwaitStable(ctx context.Context, region string, timeout time.Duration) error {
	if region == "" {
		return FixedDelay(timeout).Pause(ctx)
	}
	return e.page.WaitForSelector(ctx, region, timeout)
}

package integration

import (
	"context"
	"io"
	"testing"

	"qpcr/internal/app"
)

func TestCancelledBeforeStart_Exit130(t *testing.T) {
	_, fn := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	code := app.RunContext(ctx, []string{"run", "-i", "QuantStudio 5", "-a", "lasv", fn}, io.Discard, io.Discard)
	if code != 130 {
		t.Fatalf("expected exit 130 on cancel, got %d", code)
	}
}

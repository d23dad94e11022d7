package worker

import (
	"context"
	"sync"

	"github.com/spec-kit/suggestion-box/internal/escalation"
)

// StartEscalationWorker runs the sweeper in the background until ctx is
// done. The returned WaitGroup completes once the loop has exited.
func StartEscalationWorker(ctx context.Context, sweeper *escalation.Sweeper) *sync.WaitGroup {
	var wg sync.WaitGroup
	if sweeper == nil {
		return &wg
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		sweeper.Start(ctx)
	}()
	return &wg
}

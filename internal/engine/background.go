package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/ranlab/jgnash/internal/engine/message"
)

// maxConsecutiveUpdateErrors is the failure threshold that cancels the
// remaining callables of a background batch, so one dead quote source
// cannot hold up engine shutdown.
const maxConsecutiveUpdateErrors = 2

// BackgroundCallable is one cancellable unit of background work. Cancel
// must be safe to call from another goroutine; Call checks for
// cancellation before doing work.
type BackgroundCallable interface {
	Call(ctx context.Context) error
	Cancel()
}

// QuoteSource supplies background update work for security prices and
// currency exchange rates.
type QuoteSource interface {
	SecurityUpdates(e *Engine) []BackgroundCallable
	CurrencyUpdates(e *Engine) []BackgroundCallable
}

// startBackgroundProcess bumps the background-activity counter, announcing
// BACKGROUND_PROCESS_STARTED only on the 0 to 1 transition so bursts of
// work coalesce into one busy signal.
func (e *Engine) startBackgroundProcess() {
	e.bgMu.Lock()
	e.bgCount++
	first := e.bgCount == 1
	e.bgMu.Unlock()
	if first {
		e.post(message.ChannelSystem, message.EventBackgroundProcessStarted)
	}
}

// stopBackgroundProcess decrements the counter, announcing
// BACKGROUND_PROCESS_STOPPED only on the 1 to 0 transition.
func (e *Engine) stopBackgroundProcess() {
	e.bgMu.Lock()
	e.bgCount--
	last := e.bgCount == 0
	e.bgMu.Unlock()
	if last {
		e.post(message.ChannelSystem, message.EventBackgroundProcessStopped)
	}
}

// trashSweepLoop evicts aged trash at a fixed delay until shutdown.
func (e *Engine) trashSweepLoop() {
	defer e.wg.Done()
	ticker := time.NewTicker(e.cfg.TrashSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stop:
			return
		case <-ticker.C:
			if err := e.EmptyTrash(context.Background()); err != nil {
				e.logger.Error("trash sweep failed", slog.String("error", err.Error()))
			}
		}
	}
}

// startupUpdateKick runs the quote updates once, after the configured
// start delay, unless shutdown comes first.
func (e *Engine) startupUpdateKick() {
	defer e.wg.Done()
	select {
	case <-e.stop:
		return
	case <-time.After(e.cfg.BackgroundStartDelay):
	}

	ctx := context.Background()
	e.RunBackgroundBatch(ctx, "security update", e.cfg.QuoteSource.SecurityUpdates(e))
	e.RunBackgroundBatch(ctx, "exchange rate update", e.cfg.QuoteSource.CurrencyUpdates(e))

	if err := e.SetPreference(ctx, prefLastQuoteUpdate, dateOnly(time.Now()).Format(time.DateOnly)); err != nil {
		e.logger.Warn("storing quote update timestamp failed", slog.String("error", err.Error()))
	}
}

// quotesAreStale reports whether the last successful quote update happened
// before today.
func (e *Engine) quotesAreStale(ctx context.Context) (bool, error) {
	stored, err := e.dao.Config().Preference(ctx, prefLastQuoteUpdate)
	if err != nil || stored == "" {
		return true, nil
	}
	last, err := time.Parse(time.DateOnly, stored)
	if err != nil {
		return true, nil
	}
	return last.Before(dateOnly(time.Now())), nil
}

// RunBackgroundBatch executes the callables in order under the
// background-activity counter. Individual failures are logged and counted;
// once the consecutive failure count reaches the threshold every remaining
// callable is cancelled and the batch stops.
func (e *Engine) RunBackgroundBatch(ctx context.Context, name string, tasks []BackgroundCallable) {
	if len(tasks) == 0 {
		return
	}

	e.startBackgroundProcess()
	defer e.stopBackgroundProcess()

	errorCount := 0
	for i, task := range tasks {
		select {
		case <-e.stop:
			for _, remaining := range tasks[i:] {
				remaining.Cancel()
			}
			return
		default:
		}

		if err := task.Call(ctx); err != nil {
			errorCount++
			e.logger.Warn("background task failed",
				slog.String("batch", name),
				slog.Int("consecutive_errors", errorCount),
				slog.String("error", err.Error()))
			if errorCount >= maxConsecutiveUpdateErrors {
				e.logger.Error("cancelling remaining background tasks", slog.String("batch", name))
				for _, remaining := range tasks[i+1:] {
					remaining.Cancel()
				}
				return
			}
			continue
		}
		errorCount = 0
	}
}

// NopQuoteSource is a QuoteSource with no work; used when no network quote
// client is wired.
type NopQuoteSource struct{}

func (NopQuoteSource) SecurityUpdates(*Engine) []BackgroundCallable { return nil }
func (NopQuoteSource) CurrencyUpdates(*Engine) []BackgroundCallable { return nil }

package dashboard

import (
	"context"
	"time"

	"github.com/jetsetgo/printdesk/internal/models"
	"github.com/jetsetgo/printdesk/internal/printer"
)

// MarkError is a MarkPrinted failure after the job reached the printer
type MarkError struct {
	Err error
}

func (e *MarkError) Error() string { return "printed, but marking failed: " + e.Err.Error() }
func (e *MarkError) Unwrap() error { return e.Err }

// PrintFile downloads f's view, waits delay, sends it to printerID ("" for
// the default printer) and marks it printed on the server
func PrintFile(ctx context.Context, b Backend, p Printers, printerID string, f models.File, delay time.Duration) error {
	doc, err := b.ViewFile(ctx, f)
	if err != nil {
		return err
	}

	if delay > 0 {
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}

	job := printer.Job{
		Name:        doc.Name,
		ContentType: doc.ContentType,
		Data:        doc.Data,
		URL:         b.ViewURL(f),
	}
	if err := p.Print(ctx, printerID, job); err != nil {
		return err
	}

	if err := b.MarkPrinted(ctx, f.ID); err != nil {
		return &MarkError{Err: err}
	}
	return nil
}

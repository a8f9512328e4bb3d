// Package regulator submits filed SARs to the oversight body.
package regulator

import (
	"context"
	"fmt"
	"sync"

	"amlcore/internal/aml/sar/models"
	"amlcore/pkg/requestcontext"
)

// DefaultAuthority is the body the simulated gateway files with.
const DefaultAuthority = "SCOB (Sovereign Community Oversight Board)"

// Receipt confirms a filing.
type Receipt struct {
	ConfirmationNumber string
	FiledWith          string
}

// FilingGateway submits a SAR and returns the regulator's confirmation.
type FilingGateway interface {
	File(ctx context.Context, sar *models.SuspiciousActivityReport) (Receipt, error)
}

// Simulated stands in for the regulator. Confirmation numbers are
// SCOB-yyyyMMdd-NNNNN from a counter starting at 10000.
type Simulated struct {
	mu        sync.Mutex
	seq       int64
	authority string
	err       error
	filed     []string
}

func NewSimulated() *Simulated {
	return &Simulated{seq: 10000, authority: DefaultAuthority}
}

func (g *Simulated) File(ctx context.Context, sar *models.SuspiciousActivityReport) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return Receipt{}, g.err
	}
	confirmation := fmt.Sprintf("SCOB-%s-%05d", requestcontext.Now(ctx).UTC().Format("20060102"), g.seq)
	g.seq++
	g.filed = append(g.filed, sar.ReferenceNumber)
	return Receipt{ConfirmationNumber: confirmation, FiledWith: g.authority}, nil
}

// FailWith makes later filings fail with err. A nil err restores service.
func (g *Simulated) FailWith(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.err = err
}

// Filed returns the reference numbers accepted so far.
func (g *Simulated) Filed() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.filed...)
}

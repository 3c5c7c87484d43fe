package usecase

import (
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/husseldin/HossAI-DriveThru-Doc-v2/domain"
	"github.com/husseldin/HossAI-DriveThru-Doc-v2/domain/entities"
)

// OrderAggregator is the in-memory cart of one kiosk session. Lines keep
// arrival order and the grand total is recomputed after every mutation.
type OrderAggregator struct {
	logger *zap.Logger
	now    func() time.Time

	mu    sync.RWMutex
	lines []entities.OrderLine
	total decimal.Decimal
}

// NewOrderAggregator creates an empty order
func NewOrderAggregator(logger *zap.Logger) *OrderAggregator {
	return &OrderAggregator{logger: logger, now: time.Now, total: decimal.Zero}
}

// AddItem appends a line, or merges it into an existing line with the same
// identity by summing quantities. The existing line keeps its configuration.
func (o *OrderAggregator) AddItem(line entities.OrderLine) error {
	if err := line.Validate(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidLine, err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if i := o.indexLocked(line.ID); i >= 0 {
		existing := &o.lines[i]
		existing.Quantity += line.Quantity
		existing.Recompute()
		o.logger.Info("Merged order line",
			zap.String("id", line.ID),
			zap.Int("quantity", existing.Quantity))
	} else {
		line = line.Clone()
		line.Recompute()
		o.lines = append(o.lines, line)
		o.logger.Info("Added order line",
			zap.String("id", line.ID),
			zap.Int("quantity", line.Quantity))
	}

	o.recomputeLocked()
	return nil
}

// RemoveItem deletes a line. Removing an absent line is a no-op; the
// return value reports whether anything was removed.
func (o *OrderAggregator) RemoveItem(id string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.removeLocked(id)
}

// UpdateQuantity sets a line's quantity; q <= 0 removes the line.
// It reports whether the line existed.
func (o *OrderAggregator) UpdateQuantity(id string, q int) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if q <= 0 {
		return o.removeLocked(id)
	}

	i := o.indexLocked(id)
	if i < 0 {
		return false
	}
	o.lines[i].Quantity = q
	o.lines[i].Recompute()
	o.recomputeLocked()
	return true
}

// Clear empties the order
func (o *OrderAggregator) Clear() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.lines = nil
	o.total = decimal.Zero
}

// RecomputeTotal recomputes every line total and the grand total from scratch
func (o *OrderAggregator) RecomputeTotal() decimal.Decimal {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := range o.lines {
		o.lines[i].Recompute()
	}
	o.recomputeLocked()
	return o.total
}

// Items returns a copy of the lines in arrival order
func (o *OrderAggregator) Items() []entities.OrderLine {
	o.mu.RLock()
	defer o.mu.RUnlock()
	items := make([]entities.OrderLine, 0, len(o.lines))
	for _, l := range o.lines {
		items = append(items, l.Clone())
	}
	return items
}

// Total returns the grand total
func (o *OrderAggregator) Total() decimal.Decimal {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.total
}

// Checkout snapshots the order under a new id and clears it
func (o *OrderAggregator) Checkout() (entities.OrderSummary, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if len(o.lines) == 0 {
		return entities.OrderSummary{}, domain.ErrEmptyOrder
	}

	o.recomputeLocked()
	now := o.now()
	summary := entities.OrderSummary{
		ID:        ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		Items:     o.lines,
		Total:     o.total,
		CreatedAt: now,
	}
	o.lines = nil
	o.total = decimal.Zero

	o.logger.Info("Order checked out",
		zap.String("orderID", summary.ID),
		zap.Int("lines", len(summary.Items)),
		zap.String("total", entities.FormatPrice(summary.Total)))
	return summary, nil
}

func (o *OrderAggregator) indexLocked(id string) int {
	for i := range o.lines {
		if o.lines[i].ID == id {
			return i
		}
	}
	return -1
}

func (o *OrderAggregator) removeLocked(id string) bool {
	i := o.indexLocked(id)
	if i < 0 {
		return false
	}
	o.lines = append(o.lines[:i], o.lines[i+1:]...)
	o.recomputeLocked()
	o.logger.Info("Removed order line", zap.String("id", id))
	return true
}

func (o *OrderAggregator) recomputeLocked() {
	total := decimal.Zero
	for _, l := range o.lines {
		total = total.Add(l.Total)
	}
	o.total = total
}

package returns

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/returns/internal/domain/returns"
	"github.com/erp/returns/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultMaxNumberAttempts bounds document number retries on collision
const DefaultMaxNumberAttempts = 5

// NumberGenerator proposes the next document number for a seller, type and
// day. The (seller, document number) unique index is the real guard; a
// proposal may still collide with a concurrent insert.
type NumberGenerator struct {
	repo  returns.ReturnRepository
	clock func() time.Time
}

// NewNumberGenerator creates a NumberGenerator
func NewNumberGenerator(repo returns.ReturnRepository, clock func() time.Time) *NumberGenerator {
	if clock == nil {
		clock = time.Now
	}
	return &NumberGenerator{repo: repo, clock: clock}
}

// Next returns the number after the seller's highest for today. previous is
// the number that just collided, if any; the result is always beyond it.
func (g *NumberGenerator) Next(ctx context.Context, sellerID uuid.UUID, t returns.ReturnType, previous string) (string, error) {
	day := g.clock()
	last, err := g.repo.FindLastDocumentNumber(ctx, sellerID, returns.DocumentPrefix(t, day))
	if err != nil {
		return "", fmt.Errorf("failed to find last document number: %w", err)
	}

	next := returns.NextDocumentNumber(t, day, last)
	if previous != "" {
		after := returns.NextDocumentNumber(t, day, previous)
		if after.Sequence > next.Sequence {
			next = after
		}
	}
	return next.String(), nil
}

// createWithNumber builds and inserts a return, retrying with the next
// sequence when the insert collides on the document number.
func (s *Service) createWithNumber(
	ctx context.Context,
	sellerID uuid.UUID,
	t returns.ReturnType,
	build func(number string) (*returns.Return, error),
) (*returns.Return, error) {
	var previous string
	for attempt := 1; attempt <= s.maxNumberAttempts; attempt++ {
		number, err := s.numbers.Next(ctx, sellerID, t, previous)
		if err != nil {
			return nil, err
		}

		r, err := build(number)
		if err != nil {
			return nil, err
		}

		events := r.GetDomainEvents()
		err = s.repo.Save(ctx, r)
		if err == nil {
			r.ClearDomainEvents()
			s.publish(ctx, events)
			return r, nil
		}
		if !errors.Is(err, shared.ErrConflict) {
			return nil, err
		}

		s.logger.Warn("document number collision, retrying",
			zap.String("seller_id", sellerID.String()),
			zap.String("document_number", number),
			zap.Int("attempt", attempt),
		)
		previous = number
	}
	return nil, shared.NewConflictError("Could not allocate a %s document number for seller %s after %d attempts", t, sellerID, s.maxNumberAttempts)
}

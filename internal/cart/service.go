package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/rentmarket-backend/internal/catalog"
	"github.com/angelmondragon/rentmarket-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/rentmarket-backend/pkg/errors"
	"github.com/angelmondragon/rentmarket-backend/pkg/pricing"
)

// Service exposes cart operations for the owning customer.
type Service interface {
	List(ctx context.Context, userID uuid.UUID) (*View, error)
	Add(ctx context.Context, input AddInput) (*EntryView, error)
	Update(ctx context.Context, input UpdateInput) (*EntryView, error)
	Remove(ctx context.Context, userID, entryID uuid.UUID) error
}

type service struct {
	repo    Repository
	catalog catalog.Repository
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo Repository, catalogRepo catalog.Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if catalogRepo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo, catalog: catalogRepo}, nil
}

// AddInput selects a product for a rental window.
type AddInput struct {
	UserID    uuid.UUID
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Quantity  int
	StartDate time.Time
	EndDate   time.Time
}

// UpdateInput changes quantity and/or dates of an existing entry.
type UpdateInput struct {
	UserID    uuid.UUID
	EntryID   uuid.UUID
	Quantity  *int
	StartDate *time.Time
	EndDate   *time.Time
}

// EntryView is a cart entry with its current price preview.
type EntryView struct {
	models.CartEntry
	UnitPrice  pricing.Money
	RentalDays int64
	Subtotal   pricing.Money
}

// View is the whole cart with a price preview. Checkout recomputes prices.
type View struct {
	Entries  []EntryView
	Subtotal pricing.Money
}

func (s *service) List(ctx context.Context, userID uuid.UUID) (*View, error) {
	entries, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load cart")
	}
	view := &View{Entries: make([]EntryView, 0, len(entries)), Subtotal: pricing.Zero()}
	for _, entry := range entries {
		ev, err := preview(entry)
		if err != nil {
			return nil, err
		}
		view.Entries = append(view.Entries, *ev)
		view.Subtotal = view.Subtotal.Add(ev.Subtotal)
	}
	return view, nil
}

func (s *service) Add(ctx context.Context, input AddInput) (*EntryView, error) {
	if input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, pricing.ErrInvalidQuantity.Error())
	}
	rng, err := pricing.NewDateRange(input.StartDate, input.EndDate)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}

	product, err := s.catalog.FindActiveProduct(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}
	var variant *models.ProductVariant
	if input.VariantID != nil {
		if variant, err = s.catalog.FindVariant(ctx, product.ID, *input.VariantID); err != nil {
			return nil, err
		}
	}

	existing, err := s.repo.ListByUser(ctx, input.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load cart")
	}
	for _, entry := range existing {
		if !sameSelection(entry, input.ProductID, input.VariantID, rng) {
			continue
		}
		entry.Quantity += input.Quantity
		if err := s.repo.Update(ctx, &entry); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to update cart entry")
		}
		return preview(entry)
	}

	entry := models.CartEntry{
		ID:        uuid.New(),
		UserID:    input.UserID,
		ProductID: product.ID,
		VariantID: input.VariantID,
		Quantity:  input.Quantity,
		StartDate: rng.Start,
		EndDate:   rng.End,
	}
	if err := s.repo.Create(ctx, &entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to add cart entry")
	}
	entry.Product = product
	entry.Variant = variant
	return preview(entry)
}

func (s *service) Update(ctx context.Context, input UpdateInput) (*EntryView, error) {
	entry, err := s.repo.FindByIDAndUser(ctx, input.EntryID, input.UserID)
	if err != nil {
		return nil, err
	}

	if input.Quantity != nil {
		if *input.Quantity < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, pricing.ErrInvalidQuantity.Error())
		}
		entry.Quantity = *input.Quantity
	}
	start, end := entry.StartDate, entry.EndDate
	if input.StartDate != nil {
		start = *input.StartDate
	}
	if input.EndDate != nil {
		end = *input.EndDate
	}
	rng, err := pricing.NewDateRange(start, end)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}
	entry.StartDate, entry.EndDate = rng.Start, rng.End

	if err := s.repo.Update(ctx, entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to update cart entry")
	}
	return preview(*entry)
}

func (s *service) Remove(ctx context.Context, userID, entryID uuid.UUID) error {
	return s.repo.Delete(ctx, entryID, userID)
}

func sameSelection(entry models.CartEntry, productID uuid.UUID, variantID *uuid.UUID, rng pricing.DateRange) bool {
	if entry.ProductID != productID {
		return false
	}
	if (entry.VariantID == nil) != (variantID == nil) {
		return false
	}
	if entry.VariantID != nil && *entry.VariantID != *variantID {
		return false
	}
	existing, err := pricing.NewDateRange(entry.StartDate, entry.EndDate)
	if err != nil {
		return false
	}
	return existing.Start.Equal(rng.Start) && existing.End.Equal(rng.End)
}

// LineFor prices a cart entry from its preloaded product and variant.
func LineFor(entry models.CartEntry) (pricing.Line, error) {
	if entry.Product == nil {
		return pricing.Line{}, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	var variantPrice *pricing.Money
	if entry.Variant != nil {
		variantPrice = entry.Variant.Price
	}
	line, err := pricing.NewLine(pricing.LineInput{
		Ref:       entry.ID,
		VendorID:  entry.Product.VendorID,
		UnitPrice: pricing.UnitPrice(entry.Product.Price, variantPrice),
		Quantity:  entry.Quantity,
		Start:     entry.StartDate,
		End:       entry.EndDate,
	})
	if err != nil {
		switch {
		case errors.Is(err, pricing.ErrInvalidDateRange), errors.Is(err, pricing.ErrInvalidQuantity):
			return pricing.Line{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error()).
				WithDetails(map[string]any{"cart_entry_id": entry.ID})
		}
		return pricing.Line{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to price cart entry")
	}
	return line, nil
}

func preview(entry models.CartEntry) (*EntryView, error) {
	line, err := LineFor(entry)
	if err != nil {
		return nil, err
	}
	return &EntryView{
		CartEntry:  entry,
		UnitPrice:  line.UnitPrice,
		RentalDays: line.Days,
		Subtotal:   line.Subtotal,
	}, nil
}

package cart

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/rentmarket-backend/api/validators"
	cartsvc "github.com/angelmondragon/rentmarket-backend/internal/cart"
)

type addRequest struct {
	ProductID uuid.UUID  `json:"product_id" validate:"required"`
	VariantID *uuid.UUID `json:"variant_id,omitempty"`
	Quantity  int        `json:"quantity" validate:"required,gte=1"`
	StartDate string     `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string     `json:"end_date" validate:"required,datetime=2006-01-02"`
}

type updateRequest struct {
	Quantity  *int    `json:"quantity,omitempty" validate:"omitempty,gte=1"`
	StartDate *string `json:"start_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	EndDate   *string `json:"end_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

func (req addRequest) toInput(userID uuid.UUID) (cartsvc.AddInput, error) {
	start, err := validators.ParseDate("start_date", req.StartDate)
	if err != nil {
		return cartsvc.AddInput{}, err
	}
	end, err := validators.ParseDate("end_date", req.EndDate)
	if err != nil {
		return cartsvc.AddInput{}, err
	}
	return cartsvc.AddInput{
		UserID:    userID,
		ProductID: req.ProductID,
		VariantID: req.VariantID,
		Quantity:  req.Quantity,
		StartDate: start,
		EndDate:   end,
	}, nil
}

func (req updateRequest) toInput(userID, entryID uuid.UUID) (cartsvc.UpdateInput, error) {
	input := cartsvc.UpdateInput{UserID: userID, EntryID: entryID, Quantity: req.Quantity}
	var err error
	if input.StartDate, err = optionalDate("start_date", req.StartDate); err != nil {
		return cartsvc.UpdateInput{}, err
	}
	if input.EndDate, err = optionalDate("end_date", req.EndDate); err != nil {
		return cartsvc.UpdateInput{}, err
	}
	return input, nil
}

func optionalDate(field string, raw *string) (*time.Time, error) {
	if raw == nil {
		return nil, nil
	}
	t, err := validators.ParseDate(field, *raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

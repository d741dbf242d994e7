package ledger

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
)

// AddMode selects how AddOrUpdateItem treats the cartons of an existing item.
type AddMode string

const (
	// ModeAddCartons accumulates the supplied cartons onto the stored count.
	ModeAddCartons AddMode = "addingCartons"
	// ModeUpdatePacking leaves the stored carton count unchanged.
	ModeUpdatePacking AddMode = "updatingPacking"
)

// ItemInput is the payload of AddOrUpdateItem.
type ItemInput struct {
	Name        string `json:"name" validate:"required,max=200"`
	Code        string `json:"code" validate:"required,max=100"`
	Color       string `json:"color" validate:"required,max=100"`
	WarehouseID string `json:"warehouseId" validate:"required,max=100"`

	Cartons   int64 `json:"cartons"`
	PerCarton int64 `json:"perCarton"`
	// Singles replaces the stored singles when set, including to zero.
	Singles *int64 `json:"singles"`

	Supplier       string   `json:"supplier" validate:"max=200"`
	ItemLocation   string   `json:"itemLocation" validate:"max=200"`
	Notes          string   `json:"notes" validate:"max=2000"`
	PhotoReference string   `json:"photoReference" validate:"max=1000"`
	ExternalCodes  []string `json:"externalCodes" validate:"max=50,dive,max=100"`
}

func (in *ItemInput) trim() {
	in.Name = strings.TrimSpace(in.Name)
	in.Code = strings.TrimSpace(in.Code)
	in.Color = strings.TrimSpace(in.Color)
	in.WarehouseID = strings.TrimSpace(in.WarehouseID)
	in.Supplier = strings.TrimSpace(in.Supplier)
	in.ItemLocation = strings.TrimSpace(in.ItemLocation)
	in.Notes = strings.TrimSpace(in.Notes)
	in.PhotoReference = strings.TrimSpace(in.PhotoReference)
	in.ExternalCodes = trimAll(in.ExternalCodes)
}

func (in *ItemInput) key() BusinessKey {
	return BusinessKey{Name: in.Name, Code: in.Code, Color: in.Color, WarehouseID: in.WarehouseID}
}

// DispatchInput is the payload of Dispatch.
type DispatchInput struct {
	ItemID          id.ID  `json:"itemId"`
	FromWarehouseID string `json:"fromWarehouseId" validate:"required"`
	Destination     string `json:"destination" validate:"required,max=200"`
	Priority        string `json:"priority" validate:"max=50"`
	Notes           string `json:"notes" validate:"max=2000"`

	// Quantity takes precedence over the packed triple when set.
	Quantity  *int64 `json:"quantity"`
	Cartons   int64  `json:"cartons"`
	PerCarton int64  `json:"perCarton"`
	Singles   int64  `json:"singles"`
}

func (in *DispatchInput) trim() {
	in.FromWarehouseID = strings.TrimSpace(in.FromWarehouseID)
	in.Destination = strings.TrimSpace(in.Destination)
	in.Priority = strings.TrimSpace(in.Priority)
	in.Notes = strings.TrimSpace(in.Notes)
}

// TransferInput is the payload of Transfer.
type TransferInput struct {
	ItemID          id.ID  `json:"itemId"`
	FromWarehouseID string `json:"fromWarehouseId" validate:"required"`
	ToWarehouseID   string `json:"toWarehouseId" validate:"required"`
	Notes           string `json:"notes" validate:"max=2000"`

	// Quantity takes precedence over the packed triple when set.
	Quantity  *int64 `json:"quantity"`
	Cartons   int64  `json:"cartons"`
	PerCarton int64  `json:"perCarton"`
	Singles   int64  `json:"singles"`
}

func (in *TransferInput) trim() {
	in.FromWarehouseID = strings.TrimSpace(in.FromWarehouseID)
	in.ToWarehouseID = strings.TrimSpace(in.ToWarehouseID)
	in.Notes = strings.TrimSpace(in.Notes)
}

// DetailsUpdate is the payload of UpdateItemDetails. Nil fields are left unchanged.
type DetailsUpdate struct {
	Supplier       *string   `json:"supplier" validate:"omitempty,max=200"`
	ItemLocation   *string   `json:"itemLocation" validate:"omitempty,max=200"`
	Notes          *string   `json:"notes" validate:"omitempty,max=2000"`
	PhotoReference *string   `json:"photoReference" validate:"omitempty,max=1000"`
	PerCartonCount *int64    `json:"perCartonCount" validate:"omitempty,gt=0"`
	ExternalCodes  *[]string `json:"externalCodes" validate:"omitempty,max=50"`
}

func (u *DetailsUpdate) empty() bool {
	return u.Supplier == nil && u.ItemLocation == nil && u.Notes == nil &&
		u.PhotoReference == nil && u.PerCartonCount == nil && u.ExternalCodes == nil
}

func (u *DetailsUpdate) trim() {
	for _, s := range []*string{u.Supplier, u.ItemLocation, u.Notes, u.PhotoReference} {
		if s != nil {
			*s = strings.TrimSpace(*s)
		}
	}
	if u.ExternalCodes != nil {
		codes := trimAll(*u.ExternalCodes)
		u.ExternalCodes = &codes
	}
}

func trimAll(values []string) []string {
	if values == nil {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// validateStruct runs struct tags and converts failures into a ValidationError.
func validateStruct(v *validator.Validate, s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperror.NewValidation(err.Error())
	}
	fields := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields[fe.Field()] = fe.Tag()
	}
	first := fieldErrs[0]
	return apperror.NewValidation(fmt.Sprintf("%s failed on '%s'", first.Field(), first.Tag())).
		WithDetail("fields", fields)
}

// rejectNegative fails on the first negative quantity component. Zero is left
// to the operation, which knows whether the resolved total may be empty.
func rejectNegative(components ...quantityComponent) error {
	for _, c := range components {
		if c.value < 0 {
			return apperror.NewInvalidQuantity(c.value).WithDetail("field", c.field)
		}
	}
	return nil
}

type quantityComponent struct {
	field string
	value int64
}

func (in *ItemInput) components() []quantityComponent {
	out := []quantityComponent{{"cartons", in.Cartons}, {"perCarton", in.PerCarton}}
	if in.Singles != nil {
		out = append(out, quantityComponent{"singles", *in.Singles})
	}
	return out
}

// packedComponents lists the components shared by movement payloads.
func packedComponents(quantity *int64, cartons, perCarton, singles int64) []quantityComponent {
	out := []quantityComponent{{"cartons", cartons}, {"perCarton", perCarton}, {"singles", singles}}
	if quantity != nil {
		out = append(out, quantityComponent{"quantity", *quantity})
	}
	return out
}

func requireID(itemID id.ID, field string) error {
	if id.IsNil(itemID) {
		return apperror.NewValidation(field + " is required").WithDetail("field", field)
	}
	return nil
}

package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineSnapshot is a value copy of a cart line frozen into a checkout session or
// order. Snapshots are independent of the live cart; concurrent cart mutation
// can never alter a session or order after creation.
type LineSnapshot struct {
	ProductID uuid.UUID       `json:"productId"`
	Name      string          `json:"name"`
	ImageURL  string          `json:"image"`
	UnitPrice decimal.Decimal `json:"price"`
	Size      string          `json:"size"`
	Colour    string          `json:"colour"`
	Quantity  int             `json:"quantity"`
}

// SnapshotCartLines deep-copies cart lines into immutable snapshots.
func SnapshotCartLines(lines []CartLine) []LineSnapshot {
	out := make([]LineSnapshot, 0, len(lines))
	for _, line := range lines {
		out = append(out, LineSnapshot{
			ProductID: line.ProductID,
			Name:      line.Name,
			ImageURL:  line.ImageURL,
			UnitPrice: line.UnitPrice,
			Size:      line.Size,
			Colour:    line.Colour,
			Quantity:  line.Quantity,
		})
	}
	return out
}

// SnapshotTotal sums unit price times quantity across the snapshot.
func SnapshotTotal(lines []LineSnapshot) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return total
}

// Package integrations defines the adapter interface for external vehicle
// catalogs. Concrete providers live in subpackages (carapi, carquery, vpic).
package integrations

import (
	"context"
	"errors"

	"haulplan/internal/model"
)

// ErrNoSpecs is returned by providers that reached the catalog but found no
// usable record for the query.
var ErrNoSpecs = errors.New("integrations: no specs found")

// SpecsQuery identifies a production vehicle. Trim and Strategy are optional
// hints; providers that cannot honor them ignore them.
type SpecsQuery struct {
	Year     int
	Make     string
	Model    string
	Trim     string
	Strategy string
}

// SpecsProvider resolves body dimensions and curb weight from an external
// catalog. Implementations fill whichever fields the catalog carries and
// leave the rest nil.
type SpecsProvider interface {
	Name() string
	LookupSpecs(ctx context.Context, q SpecsQuery) (model.VehicleSpecs, error)
}

package importer

import (
	"io"

	"github.com/carvex/warranty/internal/claim"
)

// Source identifies the dealer management system a claim export came from.
type Source string

const (
	SourceDMS Source = "dms"
)

type Importer interface {
	Parse(r io.Reader) ([]claim.CreateParams, error)
}

package importer

import (
	"fmt"
	"io"

	"github.com/carvex/warranty/internal/claim"
	"github.com/carvex/warranty/internal/importer/dms"
)

type Service struct {
	dmsImporter Importer
}

func NewService() *Service {
	return &Service{
		dmsImporter: dms.New(),
	}
}

func (s *Service) Import(source Source, r io.Reader) ([]claim.CreateParams, error) {
	var importer Importer

	switch source {
	case SourceDMS:
		importer = s.dmsImporter
	default:
		return nil, fmt.Errorf("unknown source: %s", source)
	}

	return importer.Parse(r)
}

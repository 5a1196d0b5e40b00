package dms

import (
	"encoding/csv"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/carvex/warranty/internal/claim"
	enc "github.com/carvex/warranty/internal/encoding"
)

// Parser reads dealer management system claim exports and produces claim
// params. It auto-detects which export format (werkstatt, export) is being
// used by matching column headers against known profiles.
type Parser struct{}

func New() *Parser {
	return &Parser{}
}

func (p *Parser) Parse(r io.Reader) ([]claim.CreateParams, error) {
	utf8r, err := enc.NewUTF8Reader(r)
	if err != nil {
		return nil, fmt.Errorf("detect encoding: %w", err)
	}

	reader := csv.NewReader(utf8r)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	profile, colMap, headerIdx := detectProfile(rows)
	if profile == nil {
		return nil, fmt.Errorf("no matching DMS format found: expected columns for werkstatt or export")
	}

	return parseRows(profile, colMap, rows[headerIdx+1:], headerIdx+1)
}

// colIndex maps column names to their index in the row.
type colIndex map[string]int

// detectProfile scans rows for a header that matches a known profile.
// Returns the matched profile, column index map, and header row index.
func detectProfile(rows [][]string) (*Profile, colIndex, int) {
	for rowIdx, row := range rows {
		cols := make(colIndex)

		for i, cell := range row {
			name := strings.TrimSpace(cell)
			if name != "" {
				cols[name] = i
			}
		}

		for i := range profiles {
			if matchesProfile(&profiles[i], cols) {
				return &profiles[i], cols, rowIdx
			}
		}
	}

	return nil, nil, 0
}

// matchesProfile checks if all required columns of a profile are present.
func matchesProfile(p *Profile, cols colIndex) bool {
	for _, name := range p.requiredCols() {
		if _, ok := cols[name]; !ok {
			return false
		}
	}

	return true
}

// parseRows extracts claim params from data rows using the matched profile.
// headerRowNum is the 0-based index of the header in the original file (for error messages).
func parseRows(p *Profile, cols colIndex, rows [][]string, headerRowNum int) ([]claim.CreateParams, error) {
	claimNoIdx := cols[p.ClaimNoCol]
	repairIdx := cols[p.RepairCol]
	consentIdx := cols[p.ConsentCol]

	missingIdx := -1
	if idx, ok := cols[p.MissingCol]; ok {
		missingIdx = idx
	}

	costIdx := -1
	if idx, ok := cols[p.CostCol]; ok {
		costIdx = idx
	}

	var params []claim.CreateParams

	for i, row := range rows {
		rowNum := headerRowNum + i + 2 // 1-based, skipping header

		claimNo := cellValue(row, claimNoIdx)
		if claimNo == "" {
			// Footer or separator row.
			continue
		}

		repairType, ok := p.repairValues[cellValue(row, repairIdx)]
		if !ok {
			return nil, fmt.Errorf("row %d: unknown repair type %q", rowNum, cellValue(row, repairIdx))
		}

		consent := slices.Contains(p.consentYes, cellValue(row, consentIdx))

		var cost int64

		if s := cellValue(row, costIdx); s != "" {
			parsed, err := parseEuropeanAmount(s)
			if err != nil {
				return nil, fmt.Errorf("row %d: bad estimated cost %q", rowNum, s)
			}

			cost = parsed
		}

		params = append(params, claim.CreateParams{
			ClaimNumber:         claimNo,
			RepairType:          claim.RepairType(repairType),
			CustomerConsent:     consent,
			MissingRequirements: parseMissing(row, missingIdx),
			EstimatedRepairCost: cost,
		})
	}

	return params, nil
}

// parseMissing splits the missing-documents cell into individual requirement
// codes. DMS exports separate them with commas.
func parseMissing(row []string, idx int) []string {
	if idx == -1 {
		return nil
	}

	s := cellValue(row, idx)
	if s == "" {
		return nil
	}

	var reqs []string

	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			reqs = append(reqs, part)
		}
	}

	return reqs
}

// cellValue safely reads and trims a cell, returning "" for out-of-range indices.
func cellValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}

	return strings.TrimSpace(row[idx])
}

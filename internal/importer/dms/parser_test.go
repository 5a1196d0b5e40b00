package dms_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/carvex/warranty/internal/claim"
	"github.com/carvex/warranty/internal/importer/dms"
)

func TestParser_Export(t *testing.T) {
	csv := `Claim Export - 2026-08-12;Dealer 4711
Generated;2026-08-12 09:14

Claim No.;Repair Type;Customer Consent;Missing Documents;Estimated Cost;Vehicle
WC-2026-0001;Warranty;Yes;;1.234,56;WVWZZZ1KZAW000001
WC-2026-0002;Customer;No;service record, invoice copy;;WVWZZZ1KZAW000002
WC-2026-0003;Goodwill;Y;consent form;88,00;WVWZZZ1KZAW000003

Total;3
`

	p := dms.New()
	params, err := p.Parse(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, params, 3)

	assert.Equal(t, "WC-2026-0001", params[0].ClaimNumber)
	assert.Equal(t, claim.RepairTypeEVM, params[0].RepairType)
	assert.True(t, params[0].CustomerConsent)
	assert.Empty(t, params[0].MissingRequirements)
	assert.Equal(t, int64(123456), params[0].EstimatedRepairCost)

	assert.Equal(t, "WC-2026-0002", params[1].ClaimNumber)
	assert.Equal(t, claim.RepairTypeSC, params[1].RepairType)
	assert.False(t, params[1].CustomerConsent)
	assert.Equal(t, []string{"service record", "invoice copy"}, params[1].MissingRequirements)
	assert.Zero(t, params[1].EstimatedRepairCost)

	assert.Equal(t, "WC-2026-0003", params[2].ClaimNumber)
	assert.Equal(t, claim.RepairTypeEVM, params[2].RepairType)
	assert.True(t, params[2].CustomerConsent)
	assert.Equal(t, []string{"consent form"}, params[2].MissingRequirements)
	assert.Equal(t, int64(8800), params[2].EstimatedRepairCost)
}

func TestParser_Werkstatt(t *testing.T) {
	csv := `Vorgangsliste;Händler 4711
Erstellt am;12.08.2026

Vorgangs-Nr.;Reparaturart;Kundeneinwilligung;Fehlende Unterlagen
GA-2026-100;Garantie;Ja;
GA-2026-101;Kunde;Nein;Serviceheft
`

	p := dms.New()
	params, err := p.Parse(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, params, 2)

	assert.Equal(t, "GA-2026-100", params[0].ClaimNumber)
	assert.Equal(t, claim.RepairTypeEVM, params[0].RepairType)
	assert.True(t, params[0].CustomerConsent)
	assert.Empty(t, params[0].MissingRequirements)

	assert.Equal(t, "GA-2026-101", params[1].ClaimNumber)
	assert.Equal(t, claim.RepairTypeSC, params[1].RepairType)
	assert.False(t, params[1].CustomerConsent)
	assert.Equal(t, []string{"Serviceheft"}, params[1].MissingRequirements)
}

func TestParser_Werkstatt_Windows1250(t *testing.T) {
	csv := "Vorgangs-Nr.;Reparaturart;Kundeneinwilligung;Fehlende Unterlagen\n" +
		"GA-2026-200;Garantie;Ja;Einverständniserklärung\n"

	encoded, err := charmap.Windows1250.NewEncoder().Bytes([]byte(csv))
	require.NoError(t, err)

	p := dms.New()
	params, err := p.Parse(bytes.NewReader(encoded))
	require.NoError(t, err)
	require.Len(t, params, 1)

	assert.Equal(t, "GA-2026-200", params[0].ClaimNumber)
	assert.Equal(t, []string{"Einverständniserklärung"}, params[0].MissingRequirements)
}

func TestParser_UnknownFormat(t *testing.T) {
	csv := `Some;Random;Columns
1;2;3
`

	p := dms.New()
	_, err := p.Parse(strings.NewReader(csv))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no matching DMS format")
}

func TestParser_UnknownRepairType(t *testing.T) {
	csv := `Claim No.;Repair Type;Customer Consent
WC-2026-0009;Mystery;Yes
`

	p := dms.New()
	_, err := p.Parse(strings.NewReader(csv))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown repair type")
}

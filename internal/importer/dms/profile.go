package dms

// Profile describes the column layout of a DMS claim export format.
// Adding a new dealer system is just adding a new Profile to the profiles slice.
type Profile struct {
	Name         string
	ClaimNoCol   string
	RepairCol    string
	ConsentCol   string
	MissingCol   string
	CostCol      string // optional dealer-side repair estimate
	repairValues map[string]string // export value -> repair type code
	consentYes   []string          // values meaning consent was given
}

// requiredCols returns the column names that must be present for this profile to match.
func (p Profile) requiredCols() []string {
	return []string{p.ClaimNoCol, p.RepairCol, p.ConsentCol}
}

// profiles is the ordered list of DMS export formats to try during auto-detection.
// More specific profiles should come first to avoid false matches.
var profiles = []Profile{
	{
		Name:       "werkstatt",
		ClaimNoCol: "Vorgangs-Nr.",
		RepairCol:  "Reparaturart",
		ConsentCol: "Kundeneinwilligung",
		MissingCol: "Fehlende Unterlagen",
		CostCol:    "Kostenvoranschlag",
		repairValues: map[string]string{
			"Garantie": "evm_repair",
			"Kulanz":   "evm_repair",
			"Kunde":    "sc_repair",
		},
		consentYes: []string{"Ja", "ja", "J"},
	},
	{
		Name:       "export",
		ClaimNoCol: "Claim No.",
		RepairCol:  "Repair Type",
		ConsentCol: "Customer Consent",
		MissingCol: "Missing Documents",
		CostCol:    "Estimated Cost",
		repairValues: map[string]string{
			"Warranty":  "evm_repair",
			"Goodwill":  "evm_repair",
			"Customer":  "sc_repair",
			"Chargeab.": "sc_repair",
		},
		consentYes: []string{"Yes", "yes", "Y"},
	},
}

package contracts

// Dataset names. Names starting with "df_" are calculated by the pipeline,
// the others are externally supplied input files.
const (
	// S0 warehouse extracts
	DatasetMonthlyFacts     = "df_monthly_facts"
	DatasetProdGewicht      = "df_prod_gewicht"
	DatasetKprCostsReport15 = "df_kpr_costs_report15"
	DatasetKprKosten        = "df_kpr_kosten"
	DatasetKprTreiber       = "df_kpr_treiber"
	DatasetKprZustellung    = "df_kpr_zustellung"
	DatasetMappingRvAbrnr   = "df_mapping_rv_abrnr"

	// S1..S5 results
	DatasetMapping             = "df_mapping"
	DatasetTenureConflicts     = "df_ist_abrnr_multiple_kundenseit"
	DatasetVolume12M           = "df_sh2pr_12M_abrnr"
	DatasetPriceListUnique     = "df_fibu_preisliste_unique"
	DatasetProdGewichtPrepared = "df_prod_gewicht_prepared"
	DatasetWeightDistribution  = "df_gewicht2verteilung"

	// external inputs
	InputKontrakt   = "kontrakt"
	InputFibuExclA  = "fibu_excl_a"
	InputKleinpaket = "kt_abr_kleinpaket"
)

// AuditSliceName names the per-procedure slice of the volume table
func AuditSliceName(verfa string) string {
	return DatasetVolume12M + "_verfa" + verfa
}

// IsCalculated reports whether a dataset is produced by the pipeline
func IsCalculated(name string) bool {
	return len(name) >= 3 && name[:3] == "df_"
}

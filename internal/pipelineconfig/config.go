package pipelineconfig

// Config is the product rule set of the pipeline
// ⭐ SSOT: 제품별 규칙(가격표, 자재, 구간)은 YAML 한 곳에서만 정의
type Config struct {
	Meta           Meta                    `yaml:"meta" json:"meta"`
	Horizons       []int                   `yaml:"horizons" json:"horizons"`
	LookbackMonths int                     `yaml:"lookback_months" json:"lookback_months"`
	Mapping        MappingRules            `yaml:"mapping" json:"mapping"`
	WeightBrackets []WeightBracket         `yaml:"weight_brackets" json:"weight_brackets"`
	Warehouse      WarehouseTables         `yaml:"warehouse" json:"warehouse"`
	Analytic       AnalyticTargets         `yaml:"analytic" json:"analytic"`
	Products       map[string]ProductRules `yaml:"products" json:"products"`
}

// Meta identifies the rule set version in run logs
type Meta struct {
	ConfigID string `yaml:"config_id" json:"config_id"`
	Owner    string `yaml:"owner" json:"owner"`
}

// MappingRules bounds the account range of the kalknr mapping
type MappingRules struct {
	EkpnrMin int64 `yaml:"ekpnr_min" json:"ekpnr_min"`
	EkpnrMax int64 `yaml:"ekpnr_max" json:"ekpnr_max"`
}

// WeightBracket is one shipment weight class (kg). Upper 0 means open ended.
type WeightBracket struct {
	Name  string  `yaml:"name" json:"name"`
	Lower float64 `yaml:"lower" json:"lower"`
	Upper float64 `yaml:"upper" json:"upper"`
}

// WarehouseTables names the source tables of the extraction queries.
// Run-scoped tables are prefixed with <schema>.<run_name>_ at query time.
type WarehouseTables struct {
	Schema           string    `yaml:"schema" json:"schema"`
	MonthlyVolume    string    `yaml:"monthly_volume" json:"monthly_volume"`
	PzeEvents        string    `yaml:"pze_events" json:"pze_events"`
	PanShipments     string    `yaml:"pan_shipments" json:"pan_shipments"`
	KprCosts         string    `yaml:"kpr_costs" json:"kpr_costs"`
	KprZustellung    string    `yaml:"kpr_zustellung" json:"kpr_zustellung"`
	KprRahmenvertrag string    `yaml:"kpr_rahmenvertrag" json:"kpr_rahmenvertrag"`
	RunTables        RunTables `yaml:"run_tables" json:"run_tables"`
}

// RunTables are the per-run calculated warehouse tables
type RunTables struct {
	KundenSeit       string `yaml:"kunden_seit" json:"kunden_seit"`
	Aktionsgeschaeft string `yaml:"aktionsgeschaeft" json:"aktionsgeschaeft"`
	Kleinpaket       string `yaml:"kleinpaket" json:"kleinpaket"`
}

// AnalyticTargets maps result datasets to analytic store tables
type AnalyticTargets struct {
	KprCosts           string `yaml:"kpr_costs" json:"kpr_costs"`
	PriceList          string `yaml:"price_list" json:"price_list"`
	WeightDistribution string `yaml:"weight_distribution" json:"weight_distribution"`
}

// ProductRules are the rules of one product line
type ProductRules struct {
	Verfa         string   `yaml:"verfa" json:"verfa"`
	KprProductIDs []int    `yaml:"kpr_product_ids" json:"kpr_product_ids"`
	KprTreiber    string   `yaml:"kpr_treiber" json:"kpr_treiber"`
	PriceLists    []string `yaml:"price_lists" json:"price_lists"`
	PLPattern     string   `yaml:"pl_pattern" json:"pl_pattern,omitempty"`
	Materials     []string `yaml:"materials" json:"materials"`
	AuditVerfa    []string `yaml:"audit_verfa" json:"audit_verfa"`
}

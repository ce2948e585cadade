// Package s0_input extracts the raw warehouse datasets of one run.
package s0_input

import (
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/wonny/ship2profile/internal/pipelineconfig"
	"github.com/wonny/ship2profile/pkg/period"
)

// MonthlyVolumeQuery joins the monthly volume with the customer-since table.
// kunden_seit is capped by the fact month, excluded agreements are filtered out.
func MonthlyVolumeQuery(wh pipelineconfig.WarehouseTables, kundenSeit, aktion, kleinpaket string, from, to period.Period) string {
	return fmt.Sprintf(`
		SELECT
			a.jahr_monat
			, a.abrnr
			, a.auftraggeber_ekp AS ekpnr
			, a.auftraggeber_verfahren AS verfa
			, a.auftraggeber_teilnahme AS teiln
			, CASE WHEN a.jahr_monat < MIN(b.kunden_seit)
				THEN a.jahr_monat ELSE MIN(b.kunden_seit) END AS kunden_seit
			, SUM(a.vol_ber * a.num_sendung) AS vol_ber
			, SUM(a.num_sendung) AS num_sendung
		FROM
		(
			SELECT
				auftraggeber_ekp || auftraggeber_verfahren || auftraggeber_teilnahme AS abrnr,
				auftraggeber_ekp,
				auftraggeber_verfahren,
				auftraggeber_teilnahme,
				vol_ber,
				num_sendung,
				jahr * 100 + monat AS jahr_monat
			FROM %s
			WHERE jahr * 100 + monat >= %d AND jahr * 100 + monat <= %d
		) AS a
		LEFT JOIN %s AS b
		ON a.abrnr = b.abrnr
		WHERE a.abrnr IS NOT NULL
			AND a.abrnr NOT IN (SELECT abrnr FROM %s WHERE abrnr IS NOT NULL)
			AND a.abrnr NOT IN (SELECT abrnr FROM %s WHERE abrnr IS NOT NULL)
		GROUP BY a.jahr_monat, a.abrnr, a.auftraggeber_ekp, a.auftraggeber_verfahren, a.auftraggeber_teilnahme
	`, wh.MonthlyVolume, from, to, kundenSeit, aktion, kleinpaket)
}

// WeightQuery counts shipments per weight bracket for one date range
func WeightQuery(wh pipelineconfig.WarehouseTables, brackets []pipelineconfig.WeightBracket, start, end time.Time) string {
	cases := lo.Map(brackets, func(b pipelineconfig.WeightBracket, _ int) string {
		cond := fmt.Sprintf("pze.gewicht > %s", trimFloat(b.Lower))
		if b.Upper > 0 {
			cond += fmt.Sprintf(" AND pze.gewicht <= %s", trimFloat(b.Upper))
		}
		return fmt.Sprintf("\t\t\tSUM(CASE WHEN (%s) THEN 1 ELSE 0 END) AS %s", cond, b.Name)
	})

	return fmt.Sprintf(`
		SELECT
			COALESCE(pan.ekpnr, pze.ekpnr) AS ekpnr,
			COALESCE(pan.verf, pze.verf) AS verf,
			COALESCE(pan.teiln, pze.teiln) AS teiln,
			SUM(pze.gewicht) AS gewicht_sum,
%s
		FROM %s pze
		LEFT JOIN %s pan ON pze.sendungs_code = pan.shipment_code
		WHERE pze.ereignis_datum BETWEEN DATE '%s' AND DATE '%s'
		GROUP BY 1, 2, 3
	`, strings.Join(cases, ",\n"), wh.PzeEvents, wh.PanShipments,
		start.Format("2006-01-02"), end.Format("2006-01-02"))
}

// KprCostsQuery is the cost report 15 per abrnr and process level
func KprCostsQuery(wh pipelineconfig.WarehouseTables, aktion string, since, until period.Period, productIDs []int) string {
	return fmt.Sprintf(`
		SELECT
			tmp.abr AS abrnr,
			SUBSTR(tmp.abr, 1, 10) AS ekpnr,
			tmp.prozessebene_id,
			SUM(tmp.pmenge) AS "Prozessmenge",
			SUM(tmp.fix_kosten) AS "Fixkosten",
			SUM(tmp.var_kosten) AS "Varkosten"
		FROM
		(
			SELECT abr, prozessebene_id, pmenge, fix_kosten, var_kosten
			FROM %s
			WHERE (monat BETWEEN '%d' AND '%d')
				AND produkt_id IN (%s)
				AND abr NOT IN (SELECT abrnr FROM %s WHERE abrnr IS NOT NULL)
		) AS tmp
		GROUP BY 1, 2, 3
	`, wh.KprCosts, since, until, idList(productIDs), aktion)
}

// KprTreiberQuery aggregates the cost drivers up to the given month
func KprTreiberQuery(treiberTable string, until period.Period) string {
	return fmt.Sprintf(`
		SELECT
			SUBSTR(abr, 1, 10) AS ekpnr,
			abr AS abrnr,
			monat,
			SUM(COALESCE(absatz, 0) * COALESCE(volumen, 0))
				/ NULLIF(SUM(CASE WHEN volumen IS NOT NULL THEN absatz ELSE 0 END), 0) AS "Raummass",
			SUM(COALESCE(absatz, 0) * COALESCE(volumen, 0)) AS "Volumen",
			NULLIF(SUM(CASE WHEN volumen IS NOT NULL THEN absatz ELSE 0 END), 0) AS "Absatz",
			SUM(COALESCE(absatz, 0)) AS "Menge"
		FROM %s
		WHERE (monat <= '%d')
		GROUP BY 1, 2, 3
	`, treiberTable, until)
}

// KprZustellungQuery sums the delivery process quantity per abrnr
func KprZustellungQuery(wh pipelineconfig.WarehouseTables, since, until period.Period, productIDs []int) string {
	return fmt.Sprintf(`
		SELECT
			abrnr,
			SUBSTR(abrnr, 1, 10) AS ekpnr,
			SUM(CASE WHEN prozessstufe_id = 6 THEN pmenge ELSE 0 END) AS "RZ"
		FROM %s
		WHERE monat BETWEEN '%d' AND '%d'
			AND produkt_id IN (%s)
		GROUP BY abrnr
	`, wh.KprZustellung, since, until, idList(productIDs))
}

// RahmenvertragQuery lists the framework contracts active on the reference date
func RahmenvertragQuery(wh pipelineconfig.WarehouseTables, ref time.Time) string {
	day := ref.Format("20060102")
	return fmt.Sprintf(`
		SELECT rv_nr AS rahmenvertrag,
			LEFT(ab_nr, 10) AS ekpnr,
			ab_nr AS abrnr,
			rv_name AS kundenname
		FROM %s
		WHERE rv_begin <= %s
			AND rv_ende >= %s
	`, wh.KprRahmenvertrag, day, day)
}

// MinMaxDateQuery reports the loaded date range of a source table
func MinMaxDateQuery(sourceTable, column string) string {
	return fmt.Sprintf(`
		SELECT
			MIN(%[2]s) AS min_%[2]s,
			MAX(%[2]s) AS max_%[2]s
		FROM %[1]s
	`, sourceTable, column)
}

func idList(ids []int) string {
	return strings.Join(lo.Map(ids, func(id int, _ int) string { return fmt.Sprint(id) }), ", ")
}

func trimFloat(v float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.3f", v), "0"), ".")
}

// MonthRanges splits [from, through] into calendar months
func MonthRanges(from, through period.Period) [][2]time.Time {
	var out [][2]time.Time
	for _, p := range period.Range(from, through) {
		start := p.FirstDay()
		out = append(out, [2]time.Time{start, start.AddDate(0, 1, -1)})
	}
	return out
}

package export

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// RenderCSV renders the latest view as a CSV string.
func RenderCSV(view *LatestView) string {
	var sb strings.Builder

	// Header
	sb.WriteString("vehicle_id,model_name,price,kilometers,registration_date,power_kw,power_ps,battery_range_km,")
	sb.WriteString("status,first_seen,last_seen,equipment_count,")
	sb.WriteString("value_efficiency_score,age_usage_score,performance_range_score,equipment_score,composite_score\n")

	// Rows
	for _, r := range view.Rows {
		v := r.Vehicle
		sb.WriteString(fmt.Sprintf("%d,%s,%s,%d,%s,%s,%s,%s,%s,%s,%s,%d,%s,%s,%s,%s,%s\n",
			v.VehicleID,
			csvEscape(v.ModelName),
			v.Price.StringFixed(2),
			v.Kilometers,
			formatDatePtr(v.RegistrationDate),
			formatIntPtr(v.PowerKW),
			formatIntPtr(v.PowerPS),
			formatIntPtr(v.BatteryRangeKM),
			v.Status,
			v.FirstSeen.Format("2006-01-02"),
			v.LastSeen.Format("2006-01-02"),
			r.EquipmentCount,
			formatScore(r.Scores.ValueEfficiency),
			formatScore(r.Scores.AgeUsage),
			formatScore(r.Scores.PerformanceRange),
			formatScore(r.Scores.Equipment),
			formatScore(r.Scores.Composite),
		))
	}

	return sb.String()
}

// RenderEquipmentJSON renders the equipment summary as indented JSON.
func RenderEquipmentJSON(summary *EquipmentSummary) (string, error) {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal equipment summary: %w", err)
	}
	return string(data) + "\n", nil
}

// csvEscape quotes a field containing commas or quotes.
func csvEscape(s string) string {
	if !strings.ContainsAny(s, ",\"\n") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func formatDatePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

func formatIntPtr(v *int) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%d", *v)
}

// formatScore renders an undefined score as an empty field, not as zero.
func formatScore(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%.2f", *v)
}

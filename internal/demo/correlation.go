package demo

import "cybersentinel/pkg/models"

// Correlation synthesizes one alert tied to a known indicator. kpis.alerts
// grows by exactly one and the matching severity bucket is incremented, or
// inserted with a count of one when the severity was not tracked yet.
func (e *Engine) Correlation(current *models.Dataset) (*models.Dataset, models.AlertRecord) {
	next := current.Clone()
	cat := e.catalog

	chosen := pick(e.rand, cat.Severities)

	indicators := make([]string, 0, len(current.IntelTable))
	for _, rec := range current.IntelTable {
		if rec.Indicator != nil {
			indicators = append(indicators, *rec.Indicator)
		}
	}
	if len(indicators) == 0 {
		indicators = cat.FallbackIndicators
	}

	source := "ssh"
	if chosen.Severity != models.SeverityHigh {
		source = pick(e.rand, cat.LogSources)
	}

	now := e.stamp()
	alert := models.AlertRecord{
		CreatedAt: models.Str(now),
		Indicator: models.Str(pick(e.rand, indicators)),
		LogSource: models.Str(source),
		Severity:  models.Str(chosen.Severity),
		Message:   models.Str(chosen.Message),
	}
	next.AlertsTable = prependCapped(current.AlertsTable, alert, cat.AlertTableMin)
	next.KPIs.Alerts = current.KPIs.Alerts + 1

	found := false
	for i := range next.AlertSeverityCounts {
		if next.AlertSeverityCounts[i].Severity == chosen.Severity {
			next.AlertSeverityCounts[i].Count++
			found = true
			break
		}
	}
	if !found {
		next.AlertSeverityCounts = append(next.AlertSeverityCounts, models.SeverityCount{Severity: chosen.Severity, Count: 1})
	}

	next.UpdatedAt = now
	return next, alert
}

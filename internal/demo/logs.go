package demo

import "cybersentinel/pkg/models"

// LogDelta reports the counter increments applied by one ingestion step.
type LogDelta struct {
	SSH    int `json:"ssh"`
	Apache int `json:"apache"`
}

// Logs simulates one SSH and Apache ingestion pass.
func (e *Engine) Logs(current *models.Dataset) (*models.Dataset, LogDelta) {
	next := current.Clone()
	cat := e.catalog
	delta := LogDelta{
		SSH:    cat.SSHDelta.Draw(e.rand),
		Apache: cat.ApacheDelta.Draw(e.rand),
	}
	next.KPIs.SSHEvents = current.KPIs.SSHEvents + delta.SSH
	next.KPIs.ApacheEvents = current.KPIs.ApacheEvents + delta.Apache

	now := e.stamp()
	e.ingestSSH(next, current, now, delta.SSH)
	e.ingestApache(next, current, now, delta.Apache)

	next.UpdatedAt = now
	return next, delta
}

func (e *Engine) ingestSSH(next, current *models.Dataset, now string, sshDelta int) {
	cat := e.catalog

	ips := make([]string, 0, len(current.SSHTopIPs))
	for _, bucket := range current.SSHTopIPs {
		ips = append(ips, bucket.IP)
	}
	if len(ips) == 0 {
		ips = cat.SSHFallbackIP
	}
	ip := pick(e.rand, ips)

	event := models.SSHEvent{
		EventTime: models.Str(now),
		IPAddress: models.Str(ip),
		Username:  models.Str(pick(e.rand, cat.SSHUsernames)),
		Result:    models.Str("FAILED"),
	}
	next.SSHTable = prependCapped(current.SSHTable, event, cat.LogTableMin)

	last := cat.TrendBaseline
	if n := len(current.SSHFailuresOverTime); n > 0 {
		last = current.SSHFailuresOverTime[n-1].Count
	}
	trend := make([]models.TimeBucket, 0, max(1, len(current.SSHFailuresOverTime)))
	if len(current.SSHFailuresOverTime) > 0 {
		trend = append(trend, current.SSHFailuresOverTime[1:]...)
	}
	next.SSHFailuresOverTime = append(trend, models.TimeBucket{
		Time:  now,
		Count: max(cat.TrendFloor, last+cat.TrendStep.Draw(e.rand)),
	})

	for i := range next.SSHTopIPs {
		if next.SSHTopIPs[i].IP == ip {
			next.SSHTopIPs[i].Count += share(sshDelta, 3)
			break
		}
	}
}

func (e *Engine) ingestApache(next, current *models.Dataset, now string, apacheDelta int) {
	cat := e.catalog

	sample := pick(e.rand, cat.ApacheCatalog)
	event := models.ApacheEvent{
		EventTime: models.Str(now),
		IPAddress: models.Str(pick(e.rand, cat.ApacheIPs)),
		Method:    models.Str(sample.Method),
		Path:      models.Str(sample.Path),
		Status:    models.Int(sample.Status),
	}
	next.ApacheTable = prependCapped(current.ApacheTable, event, cat.LogTableMin)

	// Only pre-seeded statuses are tracked.
	for i := range next.ApacheStatusCounts {
		if next.ApacheStatusCounts[i].Status.Matches(sample.Status) {
			next.ApacheStatusCounts[i].Count += share(apacheDelta, 2)
			break
		}
	}
}

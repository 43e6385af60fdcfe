package demo

import "cybersentinel/pkg/models"

// Intel simulates a threat-feed refresh. It moves intel_count by a bounded
// draw (floored at the catalog floor), cycles the indicator table by one and
// boosts the new head's confidence. The returned delta is the change
// actually applied to intel_count.
func (e *Engine) Intel(current *models.Dataset) (*models.Dataset, int) {
	next := current.Clone()
	cat := e.catalog

	previous := current.KPIs.IntelCount
	next.KPIs.IntelCount = max(cat.IntelFloor, previous+cat.IntelDelta.Draw(e.rand))

	next.IntelTable = rotateForward(current.IntelTable)
	if len(next.IntelTable) > 0 {
		head := next.IntelTable[0]
		confidence := cat.DefaultConfidence
		if head.Confidence != nil {
			confidence = *head.Confidence
		}
		head.Confidence = models.Int(clamp(confidence+cat.ConfidenceBoost.Draw(e.rand), 0, 100))
		next.IntelTable[0] = head
	}

	next.UpdatedAt = e.stamp()
	return next, next.KPIs.IntelCount - previous
}

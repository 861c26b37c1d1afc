package telemetry

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"riskgate/pkg/models"
)

// Parse converts a raw telemetry document into a ScoredEvent. Field aliases
// accommodate the common shapes emitted by upstream detectors; a zero
// Timestamp means the document carried none and the caller should stamp
// receipt time.
func Parse(data []byte) (*models.ScoredEvent, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	event := &models.ScoredEvent{
		EntityID:   getString(raw, "entity_id", "user", "user_id"),
		EventType:  getString(raw, "event_type", "kind"),
		AttackType: getString(raw, "attack_type", "threat_type"),
		SourceIP:   getString(raw, "source_ip", "src_ip", "ip"),
		TargetHost: getString(raw, "target_host", "destination", "dest_ip"),
		Resource:   getString(raw, "resource", "details"),
		BytesOut:   getInt64(raw, "bytes_out", "size_bytes"),
	}

	if v, ok := getFloat(raw, "anomaly_score", "raw_anomaly_score"); ok {
		event.AnomalyScore = &v
	}
	if v, ok := getFloat(raw, "risk_score"); ok {
		event.RiskScore = &v
	}

	if ts := getString(raw, "timestamp", "@timestamp"); ts != "" {
		if t, ok := parseTimestamp(ts); ok {
			event.Timestamp = t
		}
	}

	return event, nil
}

func parseTimestamp(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}

	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), true
		}
	}

	for _, layout := range []string{
		"2006-01-02 15:04:05.000000",
		"2006-01-02 15:04:05",
		"2006-01-02",
	} {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t.UTC(), true
		}
	}

	return time.Time{}, false
}

func getString(root map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		v, ok := root[key]
		if !ok {
			continue
		}
		switch val := v.(type) {
		case string:
			return val
		case fmt.Stringer:
			return val.String()
		case float64:
			if val == float64(int64(val)) {
				return fmt.Sprintf("%d", int64(val))
			}
			return fmt.Sprintf("%f", val)
		}
	}
	return ""
}

func getFloat(root map[string]interface{}, keys ...string) (float64, bool) {
	for _, key := range keys {
		v, ok := root[key]
		if !ok {
			continue
		}
		switch val := v.(type) {
		case float64:
			return val, true
		case int:
			return float64(val), true
		case int64:
			return float64(val), true
		case json.Number:
			if f, err := val.Float64(); err == nil {
				return f, true
			}
		case string:
			if val == "" {
				continue
			}
			var parsed float64
			if _, err := fmt.Sscanf(val, "%g", &parsed); err == nil {
				return parsed, true
			}
		}
	}
	return 0, false
}

func getInt64(root map[string]interface{}, keys ...string) int64 {
	if v, ok := getFloat(root, keys...); ok {
		return int64(v)
	}
	return 0
}

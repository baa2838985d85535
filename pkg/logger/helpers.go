package logger

import "time"

// LogFetch records the outcome of an HTTP fetch.
func LogFetch(url string, status int, duration time.Duration, err error) {
	fields := map[string]interface{}{
		"url":         url,
		"status":      status,
		"duration_ms": duration.Milliseconds(),
	}
	if err != nil {
		fields["error"] = err.Error()
		GetLogger().ErrorWithFields("fetch failed", fields)
		return
	}
	GetLogger().DebugWithFields("fetch completed", fields)
}

// LogItem records the processing outcome of one item. A nil err means the
// item's artifacts landed at path.
func LogItem(log Logger, id, title, path string, err error) {
	if log == nil {
		log = GetLogger()
	}
	fields := map[string]interface{}{
		"item_id": id,
		"title":   title,
	}
	if err != nil {
		fields["error"] = err.Error()
		log.WarnWithFields("item failed", fields)
		return
	}
	if path != "" {
		fields["path"] = path
	}
	log.InfoWithFields("item saved", fields)
}

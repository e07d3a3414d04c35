package timeddata

import "log"

// logf prints format at level when the configured level lets it through.
// An empty configured level silences everything.
func logf(configured, level, format string, v ...interface{}) {
	switch configured {
	case "debug":
		log.Printf("["+tag(level)+"] "+format, v...)
	case "info":
		if level != "debug" {
			log.Printf("["+tag(level)+"] "+format, v...)
		}
	case "warn":
		if level != "debug" && level != "info" {
			log.Printf("["+tag(level)+"] "+format, v...)
		}
	case "error":
		if level == "error" {
			log.Printf("[ERROR] "+format, v...)
		}
	}
}

func tag(level string) string {
	switch level {
	case "debug":
		return "DEBUG"
	case "info":
		return "INFO"
	case "warn":
		return "WARN"
	default:
		return "ERROR"
	}
}

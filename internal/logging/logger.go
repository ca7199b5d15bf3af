package logging

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Init configures the global logrus logger. In production
// (ENVIRONMENT=production) it emits JSON for log aggregation; otherwise the
// human-readable text formatter.
func Init(level string) {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))
	if env == "production" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
}

// WithSession returns a logger with interview session context attached.
func WithSession(sessionID string) *logrus.Entry {
	return logrus.WithField("session_id", sessionID)
}

// WithIncident returns a logger scoped to one incident within a session.
func WithIncident(sessionID, incidentID string) *logrus.Entry {
	return logrus.WithFields(logrus.Fields{
		"session_id":  sessionID,
		"incident_id": incidentID,
	})
}

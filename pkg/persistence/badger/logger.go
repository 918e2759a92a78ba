package badger

import (
	badgerdb "github.com/dgraph-io/badger/v3"
	"go.uber.org/zap"
)

// journalLogger routes badger's internal logging into the host's zap logger
// under a "badger" name.
type journalLogger struct {
	sugar *zap.SugaredLogger
}

var _ badgerdb.Logger = (*journalLogger)(nil)

func newJournalLogger(logger *zap.Logger) *journalLogger {
	return &journalLogger{sugar: logger.Named("badger").Sugar()}
}

func (j *journalLogger) Errorf(format string, args ...interface{}) {
	j.sugar.Errorf(format, args...)
}

func (j *journalLogger) Warningf(format string, args ...interface{}) {
	j.sugar.Warnf(format, args...)
}

// Infof is demoted to debug; badger is chatty during compaction.
func (j *journalLogger) Infof(format string, args ...interface{}) {
	j.sugar.Debugf(format, args...)
}

func (j *journalLogger) Debugf(format string, args ...interface{}) {
	j.sugar.Debugf(format, args...)
}

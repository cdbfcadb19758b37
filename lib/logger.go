package lib

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/labstack/gommon/log"
	"github.com/ziflex/lecho/v3"
)

// Logger returns the process logger, writing to STDOUT or to the
// configured log file. lecho wraps zerolog so echo and the service layer
// share one logger.
func Logger(logFilePath string) *lecho.Logger {
	var target io.Writer = os.Stdout

	if logFilePath != "" {
		path := logFilePath
		if filepath.Ext(logFilePath) == "" {
			path = logFilePath + time.Now().Format("-2006-01-02") + ".log"
		}
		file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0664)
		if err != nil {
			panic(err)
		}
		target = file
	}

	return lecho.New(
		target,
		lecho.WithLevel(log.INFO),
		lecho.WithTimestamp(),
	)
}

package main

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	nested "github.com/antonfisher/nested-logrus-formatter"
	"github.com/shiena/ansicolor"
)

var log = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&nested.Formatter{
		HideKeys:        true,
		ShowFullLevel:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})
	return l
}

// InitLog 初始化日志
func InitLog(logLevel string) error {
	log = newLogger()
	// then wrap the log output with it
	logIO := make([]io.Writer, 0)
	if conf.Output.LogDir != "" {
		if err := os.MkdirAll(conf.Output.LogDir, os.ModePerm); err != nil {
			return err
		}
		filename := filepath.Join(conf.Output.LogDir, time.Now().Format("2006-01-02.log"))
		file, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		logIO = append(logIO, file)
	}
	if conf.Output.OutputTerminal {
		logIO = append(logIO, os.Stdout)
	}

	// 融合日志输出
	if len(logIO) == 0 {
		log.SetOutput(io.Discard)
	} else {
		log.SetOutput(ansicolor.NewAnsiColorWriter(io.MultiWriter(logIO...)))
	}

	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		log.SetLevel(logrus.InfoLevel)
	} else {
		log.SetLevel(level)
	}
	return nil
}

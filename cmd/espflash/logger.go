package main

import "github.com/golang/glog"

// glogLogger направляет сообщения flasher в glog; отладка видна с -v=2
type glogLogger struct{}

func (glogLogger) Debugf(format string, args ...interface{}) {
	glog.V(2).Infof(format, args...)
}

func (glogLogger) Infof(format string, args ...interface{}) {
	glog.Infof(format, args...)
}

func (glogLogger) Warningf(format string, args ...interface{}) {
	glog.Warningf(format, args...)
}

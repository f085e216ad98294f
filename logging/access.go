package logging

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	dateFormat      = "02/Jan/2006:15:04:05 -0700"
	commonLogFormat = `%s - - [%s] "%s %s %s" %d %d`
	// remote_host - - [date] "method uri proto" status size "referer" "user_agent"
	combinedLogFormat = commonLogFormat + ` "%s" "%s"`
	// combined plus the duration in ms, the requested host and the routing
	// outcome
	accessLogFormat = combinedLogFormat + " %d %s %s\n"
)

type accessLogFormatter struct {
	format string
}

// AccessEntry represents one access log entry.
type AccessEntry struct {

	// The client request.
	Request *http.Request

	// The status code of the response.
	StatusCode int

	// The size of the response in bytes.
	ResponseSize int64

	// The time spent processing the request.
	Duration time.Duration

	// The time the request was received.
	RequestTime time.Time

	// The routing outcome: redirect, rewrite target page, asset, proxy or
	// notfound.
	Outcome string
}

var accessLog *logrus.Logger

// strip port from addresses with hostname, ipv4 or ipv6
func stripPort(address string) string {
	if h, _, err := net.SplitHostPort(address); err == nil {
		return h
	}

	return address
}

// The remote address of the client. When the 'X-Forwarded-For' header is
// set, it is used instead.
func remoteAddr(r *http.Request) string {
	if ff := r.Header.Get("X-Forwarded-For"); ff != "" {
		return ff
	}

	return r.RemoteAddr
}

func remoteHost(r *http.Request) string {
	if h := stripPort(remoteAddr(r)); h != "" {
		return h
	}

	return "-"
}

func (f *accessLogFormatter) Format(e *logrus.Entry) ([]byte, error) {
	keys := []string{
		"host", "timestamp", "method", "uri", "proto",
		"status", "response-size", "referer", "user-agent",
		"duration", "requested-host", "outcome"}

	values := make([]interface{}, len(keys))
	for i, key := range keys {
		values[i] = e.Data[key]
	}

	return []byte(fmt.Sprintf(f.format, values...)), nil
}

// LogAccess logs an access event in Apache combined log format, extended
// with the duration, the requested host and the routing outcome.
func LogAccess(entry *AccessEntry) {
	if accessLog == nil || entry == nil {
		return
	}

	host := "-"
	method := ""
	uri := ""
	proto := ""
	referer := ""
	userAgent := ""
	requestedHost := ""

	ts := entry.RequestTime.Format(dateFormat)
	status := entry.StatusCode
	responseSize := entry.ResponseSize
	duration := int64(entry.Duration / time.Millisecond)
	outcome := entry.Outcome
	if outcome == "" {
		outcome = "-"
	}

	if entry.Request != nil {
		host = remoteHost(entry.Request)
		method = entry.Request.Method
		uri = entry.Request.RequestURI
		proto = entry.Request.Proto
		referer = entry.Request.Referer()
		userAgent = entry.Request.UserAgent()
		requestedHost = entry.Request.Host
	}

	accessLog.WithFields(logrus.Fields{
		"timestamp":      ts,
		"host":           host,
		"method":         method,
		"uri":            uri,
		"proto":          proto,
		"referer":        referer,
		"user-agent":     userAgent,
		"status":         status,
		"response-size":  responseSize,
		"requested-host": requestedHost,
		"duration":       duration,
		"outcome":        outcome,
	}).Infoln()
}

package xslog

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/garrettladley/chirp/internal/xcontext"
)

const (
	groupRequest  = "request"
	groupResponse = "response"
	groupError    = "error"
	groupConn         = "conn"
	groupQueue        = "queue"
	groupNotification = "notification"
)

const (
	keyID         = "id"
	keyHost       = "host"
	keyUserAgent  = "user_agent"
	keyProto      = "proto"
	keyQuery      = "query"
	keyStatusText = "status_text"
	keyDurationMS = "duration_ms"
	keyMessage    = "message"
	keyType       = "type"
	keyValue      = "value"
	keyRemote     = "remote"
	keyStream     = "stream"
	keyGroup      = "group"
	keyConsumer   = "consumer"
	keyRecipient  = "recipient_id"
)

func RequestGroup(r *http.Request) slog.Attr {
	attrs := []slog.Attr{
		RequestMethod(r),
		RequestPath(r),
		RequestIP(r),
		slog.String(keyHost, r.Host),
		slog.String(keyUserAgent, r.UserAgent()),
		slog.String(keyProto, r.Proto),
	}
	if id, ok := xcontext.RequestID(r.Context()); ok {
		attrs = append(attrs, slog.String(keyID, id))
	}
	if r.URL.RawQuery != "" {
		attrs = append(attrs, slog.String(keyQuery, r.URL.RawQuery))
	}
	return slog.GroupAttrs(groupRequest, attrs...)
}

func ResponseGroup(status int, duration time.Duration) slog.Attr {
	return slog.Group(groupResponse,
		HTTPStatus(status),
		slog.String(keyStatusText, http.StatusText(status)),
		Duration(duration),
		slog.Int64(keyDurationMS, duration.Milliseconds()),
	)
}

func ErrorGroup(err error) slog.Attr {
	if err == nil {
		return slog.Group(groupError)
	}
	return slog.Group(groupError,
		slog.String(keyMessage, err.Error()),
		slog.String(keyType, fmt.Sprintf("%T", err)),
	)
}

func ErrorGroupWithStack(err any) slog.Attr {
	return slog.Group(groupError,
		slog.Any(keyValue, err),
		slog.String(keyType, fmt.Sprintf("%T", err)),
		Stack(),
	)
}

func ConnGroup(connID, remote string) slog.Attr {
	return slog.Group(groupConn,
		slog.String(keyID, connID),
		slog.String(keyRemote, remote),
	)
}

// QueueGroup identifies a stream consumer. Every worker log line carries it.
func QueueGroup(stream, group, consumer string) slog.Attr {
	return slog.Group(groupQueue,
		slog.String(keyStream, stream),
		slog.String(keyGroup, group),
		slog.String(keyConsumer, consumer),
	)
}

func NotificationGroup(id, recipientID string) slog.Attr {
	return slog.Group(groupNotification,
		slog.String(keyID, id),
		slog.String(keyRecipient, recipientID),
	)
}

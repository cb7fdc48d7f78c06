package logger

import (
	"log/slog"
	"strconv"
	"time"
)

// Group creates a slog group attribute from the provided attributes.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// Errors groups the non-nil errors under "errors". All nil yields an empty Attr.
func Errors(errs ...error) slog.Attr {
	as := make([]slog.Attr, 0, len(errs))
	for i, err := range errs {
		if err != nil {
			as = append(as, slog.Any(strconv.Itoa(i), err))
		}
	}
	if len(as) == 0 {
		return slog.Attr{}
	}
	return slog.Attr{Key: "errors", Value: slog.GroupValue(as...)}
}

// Error records err under "error". A nil err yields an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// UserID records the wallet owner under "user_id". A nil id yields an empty Attr.
func UserID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("user_id", id)
}

// RequestID records the request identifier under "request_id".
func RequestID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("request_id", id)
}

// Plan records a plan tier under "plan".
func Plan(plan string) slog.Attr {
	return slog.String("plan", plan)
}

// FromPlan and ToPlan record both sides of a plan transition.
func FromPlan(plan string) slog.Attr {
	return slog.String("from_plan", plan)
}

// ToPlan records the plan a wallet moved to.
func ToPlan(plan string) slog.Attr {
	return slog.String("to_plan", plan)
}

// Count records a build count under "count".
func Count(n int) slog.Attr {
	return slog.Int("count", n)
}

// Operation records the ledger operation under "op".
func Operation(name string) slog.Attr {
	return slog.String("op", name)
}

// Backend records the wallet store kind under "backend".
func Backend(name string) slog.Attr {
	return slog.String("backend", name)
}

// Version records a wallet version under "version".
func Version(v int64) slog.Attr {
	return slog.Int64("version", v)
}

// RetryCount records the attempt number under "retry_count".
func RetryCount(count int) slog.Attr {
	return slog.Int("retry_count", count)
}

// Duration records an elapsed time under "duration".
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// Component records the component name under "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

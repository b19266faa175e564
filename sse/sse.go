// Package sse formats Server-Sent Events messages (spec §4.4.4): an id
// line, an optional event line, and one or more data lines, terminated by a
// blank line. There is no teacher precedent for SSE in badu-http (a
// request/response-only net/http clone), so the wire format itself is
// grounded directly on the text/event-stream grammar the spec cites and on
// the original RdWebResponderSSE's generateEventMessage, adapted per spec
// §9's resolution of the undefined `pEvent` ambiguity: the group string is
// used as the event name, and the `event:` line is omitted when the group
// is empty.
package sse

import (
	"fmt"
	"strconv"
	"strings"
)

// Event is one (group, content) pair queued for delivery.
type Event struct {
	Group   string
	Content string
}

// Format renders ev as a complete SSE message, splitting Content on
// \r\n, \r, or \n into multiple data: lines.
func Format(ev Event, epochSeconds int64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "id: %s\r\n", strconv.FormatInt(epochSeconds, 10))
	if ev.Group != "" {
		fmt.Fprintf(&b, "event: %s\r\n", ev.Group)
	}
	for _, line := range splitLines(ev.Content) {
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteString("\r\n")
	}
	b.WriteString("\r\n")
	return b.String()
}

// splitLines breaks s on any of \r\n, \r, or \n.
func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.Split(s, "\n")
}

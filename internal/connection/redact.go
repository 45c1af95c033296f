package connection

import (
	"net/url"
	"strings"
)

// redactURL hides the listen key in user data stream URLs before logging.
// Listen keys are the last path segment and are long random tokens.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	i := strings.LastIndex(u.Path, "/")
	if i < 0 {
		return raw
	}
	last := u.Path[i+1:]
	if len(last) < 32 || strings.ContainsAny(last, "@!") {
		return raw
	}

	u.Path = u.Path[:i+1] + last[:4] + "..."
	return u.String()
}

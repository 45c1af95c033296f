package stream

import "strings"

// RawEndpoint builds the endpoint for a single raw stream, following the
// exchange convention <base>/ws/<stream name>.
func RawEndpoint(baseURL, name string) Endpoint {
	return Endpoint{
		URL:  strings.TrimRight(baseURL, "/") + "/ws/" + name,
		Name: name,
	}
}

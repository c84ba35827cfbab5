package session

import (
	"net/http"
	"sort"
)

// GetServer is implemented by handles that can serve a client receive channel.
type GetServer interface {
	ServeGet(w http.ResponseWriter, r *http.Request)
}

// PostServer is implemented by handles that accept client messages over HTTP POST.
type PostServer interface {
	ServePost(w http.ResponseWriter, r *http.Request)
}

// Deliverer is implemented by handles fed from a separate sidecar channel.
type Deliverer interface {
	Deliver(data []byte) error
}

// Operations lists the entry points a handle exposes, used for mismatch diagnostics.
func Operations(handle interface{}) []string {
	var ret []string
	if _, ok := handle.(http.Handler); ok {
		ret = append(ret, "ServeHTTP")
	}
	if _, ok := handle.(GetServer); ok {
		ret = append(ret, "ServeGet")
	}
	if _, ok := handle.(PostServer); ok {
		ret = append(ret, "ServePost")
	}
	if _, ok := handle.(Deliverer); ok {
		ret = append(ret, "Deliver")
	}
	if _, ok := handle.(Handle); ok {
		ret = append(ret, "Receive", "Send", "Close")
	}
	sort.Strings(ret)
	return ret
}

package backend

import (
	"net/url"
	"strings"

	"github.com/jetsetgo/printdesk/internal/config"
)

// Endpoint is one backend route. Path may contain an {id} placeholder.
type Endpoint struct {
	Method string
	Path   string
	Auth   bool
}

// Routes is the endpoint table of a backend variant. A zero Endpoint means
// the variant does not offer the operation.
type Routes struct {
	List   Endpoint
	Upload Endpoint
	Folder Endpoint
	Delete Endpoint
	Print  Endpoint
	View   Endpoint
	Login  Endpoint
	WS     string
}

// RoutesFor returns the endpoint table for v
func RoutesFor(v config.Variant) Routes {
	if v == config.VariantLegacy {
		return Routes{
			List:   Endpoint{Method: "GET", Path: "/files"},
			Upload: Endpoint{Method: "POST", Path: "/upload"},
			Delete: Endpoint{Method: "DELETE", Path: "/delete/{id}"},
			Print:  Endpoint{Method: "POST", Path: "/print/{id}"},
			View:   Endpoint{Method: "GET", Path: "/uploads/{id}"},
			Login:  Endpoint{Method: "POST", Path: "/api/admin/login"},
			WS:     "/ws/admin",
		}
	}

	return Routes{
		List:   Endpoint{Method: "GET", Path: "/api/files", Auth: true},
		Upload: Endpoint{Method: "POST", Path: "/api/upload"},
		Folder: Endpoint{Method: "POST", Path: "/api/folders"},
		Delete: Endpoint{Method: "DELETE", Path: "/api/files/{id}", Auth: true},
		Print:  Endpoint{Method: "POST", Path: "/print/{id}"},
		View:   Endpoint{Method: "GET", Path: "/api/files/{id}/view", Auth: true},
		Login:  Endpoint{Method: "POST", Path: "/api/admin/login"},
		WS:     "/ws",
	}
}

// Supported reports whether the endpoint exists in this variant
func (e Endpoint) Supported() bool {
	return e.Path != ""
}

// With substitutes id into the path
func (e Endpoint) With(id string) string {
	return strings.Replace(e.Path, "{id}", url.PathEscape(id), 1)
}

// WebSocketURL converts an http(s) base URL into the ws(s) push endpoint
func WebSocketURL(base, path string) (string, error) {
	u, err := url.Parse(strings.TrimRight(base, "/") + path)
	if err != nil {
		return "", err
	}

	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	}
	return u.String(), nil
}

package datapipe

import "context"

// AuthStrategy produces the bearer token used for fetching
type AuthStrategy interface {
	Authenticate(ctx context.Context) (string, error)
	// IsAuthenticated is a pure query; it never touches the network
	IsAuthenticated() bool
}

// ResponseProcessor reshapes a decoded response body; implementations must not retain state between calls
type ResponseProcessor interface {
	ProcessResponse(raw any) (any, error)
}

// FileHandler reads and writes a single file in one concrete format
type FileHandler interface {
	Read() (any, error)
	Save(data any) error
}

type ConfigStrategy interface {
	ReadConfig() (map[string]any, error)
}

type Mapable interface {
	AsMap() map[string]any
}

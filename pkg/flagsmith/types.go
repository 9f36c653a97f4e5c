package flagsmith

// DefaultBaseURL is the hosted Flagsmith edge API.
const DefaultBaseURL = "https://edge.api.flagsmith.com/api/v1"

type Feature struct {
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

// Flag is a single feature state as returned by the flags endpoint.
// Value carries whatever JSON type the remote value was configured
// with (string, number, bool or null).
type Flag struct {
	Feature Feature     `json:"feature"`
	Enabled bool        `json:"enabled"`
	Value   interface{} `json:"feature_state_value"`
}

// identityResponse is the envelope returned by the identities endpoint.
type identityResponse struct {
	Flags []Flag `json:"flags"`
}

package flagsmith

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/xeipuuv/gojsonschema"
)

const flagSchema = `{
  "type": "object",
  "required": ["feature", "enabled"],
  "properties": {
    "feature": {
      "type": "object",
      "required": ["name"],
      "properties": {
        "name": {"type": "string"}
      }
    },
    "enabled": {"type": "boolean"},
    "feature_state_value": {"type": ["string", "number", "boolean", "null"]}
  }
}`

var (
	flagListSchema = gojsonschema.NewStringLoader(fmt.Sprintf(
		`{"type": "array", "items": %s}`, flagSchema))
	identitySchema = gojsonschema.NewStringLoader(fmt.Sprintf(
		`{"type": "object", "required": ["flags"], "properties": {"flags": {"type": "array", "items": %s}}}`, flagSchema))
)

// Client fetches feature states from a Flagsmith-compatible API. It is
// stateless between calls and safe to reuse across fetch cycles.
type Client struct {
	baseURL  string
	apiKey   string
	envID    string
	identity string
	http     *http.Client
}

func NewClient(baseURL, apiKey, envID, identity string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   apiKey,
		envID:    envID,
		identity: identity,
		http:     &http.Client{Timeout: timeout},
	}
}

// Fetch retrieves the current feature states for the configured
// environment (or identity). Failures are always *FetchError.
func (c *Client) Fetch(ctx context.Context) ([]Flag, error) {
	endpoint, schema := c.endpoint()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &FetchError{Kind: ErrorParse, Err: err}
	}
	req.Header.Set("X-Environment-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	log.Debugf("GET %s", endpoint)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &FetchError{Kind: ErrorTransient, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{Kind: ErrorTransient, Status: resp.StatusCode, Err: err}
	}

	if kind, ok := classifyStatus(resp.StatusCode); !ok {
		return nil, &FetchError{
			Kind:   kind,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("%s", strings.TrimSpace(firstLine(body))),
		}
	}

	return c.decode(body, schema, resp.StatusCode)
}

func (c *Client) endpoint() (string, gojsonschema.JSONLoader) {
	if c.identity != "" {
		q := url.Values{"identifier": {c.identity}}
		return fmt.Sprintf("%s/identities/?%s", c.baseURL, q.Encode()), identitySchema
	}
	endpoint := c.baseURL + "/flags/"
	if c.envID != "" {
		q := url.Values{"environment": {c.envID}}
		endpoint += "?" + q.Encode()
	}
	return endpoint, flagListSchema
}

// classifyStatus maps a non-2xx status to an error kind. The bool is
// true for 2xx.
func classifyStatus(status int) (ErrorKind, bool) {
	switch {
	case status >= 200 && status < 300:
		return 0, true
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrorAuth, false
	case status == http.StatusNotFound:
		return ErrorNotFound, false
	case status >= 500 || status == http.StatusTooManyRequests:
		return ErrorTransient, false
	default:
		return ErrorParse, false
	}
}

func (c *Client) decode(body []byte, schema gojsonschema.JSONLoader, status int) ([]Flag, error) {
	result, err := gojsonschema.Validate(schema, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return nil, &FetchError{Kind: ErrorParse, Status: status, Err: err}
	}
	if !result.Valid() {
		return nil, &FetchError{
			Kind:   ErrorParse,
			Status: status,
			Err:    fmt.Errorf("response failed schema validation: %s", result.Errors()[0]),
		}
	}

	if c.identity != "" {
		var envelope identityResponse
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, &FetchError{Kind: ErrorParse, Status: status, Err: err}
		}
		return envelope.Flags, nil
	}

	var flags []Flag
	if err := json.Unmarshal(body, &flags); err != nil {
		return nil, &FetchError{Kind: ErrorParse, Status: status, Err: err}
	}
	return flags, nil
}

// firstLine keeps error payloads readable in logs; some deployments
// return full HTML error pages.
func firstLine(body []byte) string {
	s := string(body)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}

// AsFetchError unwraps err into a *FetchError if it is one.
func AsFetchError(err error) (*FetchError, bool) {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// Package extraction calls the managed AI extraction endpoint. The endpoint
// is opaque: it takes raw email text and returns a best-effort field map,
// which may be partial or empty. No schema is enforced beyond the field
// names this service understands.
package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ashwinpo/email-review-workshop/internal/domain"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Extractor is the opaque extraction collaborator.
type Extractor interface {
	Extract(ctx context.Context, text string) (domain.ContactFields, error)
}

// Client talks HTTP to a serving endpoint.
type Client struct {
	httpClient *http.Client
	url        string
}

// Config carries endpoint location and credentials. When ClientID and
// TokenURL are set, tokens are fetched via the OAuth2 client-credentials
// flow; otherwise Token is sent as a static bearer token.
type Config struct {
	URL          string
	Token        string
	ClientID     string
	ClientSecret string
	TokenURL     string
	Timeout      time.Duration
}

// NewClient builds an extraction client with bounded request timeouts.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	var httpClient *http.Client
	switch {
	case cfg.ClientID != "" && cfg.TokenURL != "":
		creds := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
		}
		httpClient = creds.Client(context.Background())
	case cfg.Token != "":
		source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
		httpClient = oauth2.NewClient(context.Background(), source)
	default:
		httpClient = &http.Client{}
	}
	httpClient.Timeout = timeout

	return &Client{httpClient: httpClient, url: cfg.URL}
}

type extractRequest struct {
	Inputs []extractInput `json:"inputs"`
}

type extractInput struct {
	Body string `json:"body"`
}

type extractResponse struct {
	Predictions []fieldMap `json:"predictions"`
}

type fieldMap struct {
	SAPID        string `json:"sap_id"`
	ContactName  string `json:"contact_name"`
	ContactEmail string `json:"contact_email"`
	ContactPhone string `json:"contact_phone"`
}

// Extract posts the raw text to the endpoint and returns the field map.
// Failures are transient from the caller's perspective: the queue record is
// still created, carrying the extraction error.
func (c *Client) Extract(ctx context.Context, text string) (domain.ContactFields, error) {
	payload, err := json.Marshal(extractRequest{Inputs: []extractInput{{Body: text}}})
	if err != nil {
		return domain.ContactFields{}, fmt.Errorf("encode extraction request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return domain.ContactFields{}, fmt.Errorf("build extraction request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.ContactFields{}, fmt.Errorf("call extraction endpoint: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.ContactFields{}, fmt.Errorf("read extraction response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return domain.ContactFields{}, fmt.Errorf("extraction endpoint returned %d: %s", resp.StatusCode, truncate(body))
	}

	var decoded extractResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return domain.ContactFields{}, fmt.Errorf("decode extraction response: %w", err)
	}
	if len(decoded.Predictions) == 0 {
		// An empty prediction is a valid (if useless) answer, not an error.
		return domain.ContactFields{}, nil
	}

	fields := decoded.Predictions[0]
	return domain.ContactFields{
		SAPID:        fields.SAPID,
		ContactName:  fields.ContactName,
		ContactEmail: fields.ContactEmail,
		ContactPhone: fields.ContactPhone,
	}, nil
}

func truncate(body []byte) string {
	const maxLen = 256
	if len(body) > maxLen {
		return string(body[:maxLen])
	}
	return string(body)
}

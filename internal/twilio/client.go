package twilio

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultBaseURL = "https://api.twilio.com/2010-04-01"

// Client talks to the Twilio REST API for the Calls resource.
type Client struct {
	hc      *http.Client
	creds   Credentials
	baseURL string
}

type Credentials struct {
	AccountSID string
	AuthToken  string
}

func (c Credentials) Valid() bool {
	return c.AccountSID != "" && c.AuthToken != ""
}

func New(creds Credentials) *Client {
	return &Client{
		hc:      &http.Client{Timeout: 15 * time.Second},
		creds:   creds,
		baseURL: DefaultBaseURL,
	}
}

// WithBaseURL points the client at another API root, used by tests.
func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = strings.TrimRight(u, "/")
	return c
}

// Error is a non-2xx response from Twilio.
type Error struct {
	Status   int    `json:"status"`
	Code     int    `json:"code"`
	Message  string `json:"message"`
	MoreInfo string `json:"more_info"`
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("twilio: %s (code=%d status=%d)", e.Message, e.Code, e.Status)
	}
	return fmt.Sprintf("twilio: %s (status=%d)", e.Message, e.Status)
}

type Call struct {
	SID    string `json:"sid"`
	To     string `json:"to"`
	From   string `json:"from"`
	Status string `json:"status"`
}

type CallParams struct {
	To   string
	From string
	// URL Twilio fetches TwiML from once the call connects.
	URL    string
	Method string
}

// CreateCall places an outbound call.
func (c *Client) CreateCall(ctx context.Context, p CallParams) (Call, error) {
	if !c.creds.Valid() {
		return Call{}, errors.New("twilio: account sid and auth token are required")
	}
	form := url.Values{}
	form.Set("To", p.To)
	form.Set("From", p.From)
	form.Set("Url", p.URL)
	method := p.Method
	if method == "" {
		method = http.MethodPost
	}
	form.Set("Method", method)

	var call Call
	if err := c.post(ctx, "/Accounts/"+c.creds.AccountSID+"/Calls.json", form, &call); err != nil {
		return Call{}, err
	}
	return call, nil
}

// HangUp ends an in-progress call.
func (c *Client) HangUp(ctx context.Context, callSID string) error {
	if !c.creds.Valid() {
		return errors.New("twilio: account sid and auth token are required")
	}
	form := url.Values{}
	form.Set("Status", "completed")
	return c.post(ctx, "/Accounts/"+c.creds.AccountSID+"/Calls/"+callSID+".json", form, nil)
}

func (c *Client) post(ctx context.Context, path string, form url.Values, out any) error {
	status, body, err := c.do(ctx, http.MethodPost, c.baseURL+path, "application/x-www-form-urlencoded", []byte(form.Encode()))
	if err != nil {
		return err
	}
	if status >= 400 {
		apiErr := &Error{Status: status}
		_ = json.Unmarshal(body, apiErr)
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(status)
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("twilio: decode response: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, rawURL, contentType string, body []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(c.creds.AccountSID, c.creds.AuthToken)

	res, err := c.hc.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer res.Body.Close()
	b, err := io.ReadAll(res.Body)
	if err != nil {
		return res.StatusCode, nil, err
	}
	return res.StatusCode, b, nil
}

package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sloppy/nettools/internal/scope"
)

const (
	DefaultBaseURL = "https://ipapi.co"
	DefaultIPv4URL = "https://api.ipify.org?format=json"
	DefaultIPv6URL = "https://api64.ipify.org?format=json"

	defaultTimeout = 10 * time.Second
)

// User-facing failure reasons.
const (
	ReasonFetchFailed = "Failed to fetch WHOIS data"
	ReasonInvalidIP   = "Invalid IP address"
	ReasonReserved    = "Reserved IP Address"
	ReasonNoAddress   = "Failed to fetch IP address information"
)

// Client talks to ipapi.co and ipify. It never retries.
type Client struct {
	HTTP     *http.Client
	BaseURL  string
	IPv4URL  string
	IPv6URL  string
	Reserved *scope.Matcher
}

// NewClient returns a Client against the public endpoints. A nil httpClient
// gets a default with a ten second timeout.
func NewClient(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		HTTP:     httpClient,
		BaseURL:  DefaultBaseURL,
		IPv4URL:  DefaultIPv4URL,
		IPv6URL:  DefaultIPv6URL,
		Reserved: scope.Reserved(),
	}
}

type apiResponse struct {
	Location
	Error  bool   `json:"error"`
	Reason string `json:"reason"`
}

// Lookup fetches the location of ip. Leading zeros are dropped and reserved
// addresses are refused locally.
func (c *Client) Lookup(ctx context.Context, ip string) (Location, error) {
	ip, err := checkReserved(c.Reserved, ip)
	if err != nil {
		return Location{}, err
	}
	return c.fetchLocation(ctx, strings.TrimRight(c.BaseURL, "/")+"/"+ip+"/json/")
}

func (c *Client) fetchLocation(ctx context.Context, url string) (Location, error) {
	var body apiResponse
	status, err := c.getJSON(ctx, url, &body)
	if err != nil {
		return Location{}, err
	}
	if status < 200 || status > 299 {
		return Location{}, &LookupError{Reason: ReasonFetchFailed}
	}
	if body.Error {
		reason := body.Reason
		if reason == "" {
			reason = ReasonInvalidIP
		}
		return Location{}, &LookupError{Reason: reason}
	}
	return body.Location, nil
}

func (c *Client) getJSON(ctx context.Context, url string, dst any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, fmt.Errorf("get %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return resp.StatusCode, fmt.Errorf("decode %s: %w", url, err)
	}
	return resp.StatusCode, nil
}

func (c *Client) fetchIP(ctx context.Context, url string) string {
	var body struct {
		IP string `json:"ip"`
	}
	status, err := c.getJSON(ctx, url, &body)
	if err != nil || status < 200 || status > 299 {
		return ""
	}
	return strings.TrimSpace(body.IP)
}

// Self finds the caller's public addresses and the location of its IPv4
// address. Each upstream step is best effort; only finding no address at all
// is an error. Missing pieces are filled with placeholders.
func (c *Client) Self(ctx context.Context) (MyLocation, error) {
	var out MyLocation
	var loc *Location

	if ip := c.fetchIP(ctx, c.IPv4URL); ip != "" && !strings.Contains(ip, ":") {
		out.IPv4 = ip
	}

	if out.IPv4 == "" {
		if l, err := c.fetchLocation(ctx, strings.TrimRight(c.BaseURL, "/")+"/json/"); err == nil && l.IP != "" {
			if strings.Contains(l.IP, ":") {
				out.IPv6 = l.IP
			} else {
				out.IPv4 = l.IP
			}
			loc = &l
		}
	}

	if out.IPv4 != "" && loc == nil {
		if l, err := c.Lookup(ctx, out.IPv4); err == nil {
			loc = &l
		}
	}

	if out.IPv6 == "" {
		if ip := c.fetchIP(ctx, c.IPv6URL); strings.Contains(ip, ":") {
			out.IPv6 = ip
		}
	}

	if out.IPv4 == "" && out.IPv6 == "" {
		return MyLocation{}, &LookupError{Reason: ReasonNoAddress}
	}

	if loc != nil {
		out.Location = *loc
	}
	out.Location = out.Location.WithPlaceholders(Unknown)
	if out.Location.CountryCode == Unknown {
		out.Location.CountryCode = UnknownCountryCode
	}
	if out.Location.IP == Unknown {
		out.Location.IP = ""
	}
	if out.IPv4 == "" {
		out.IPv4 = NotAvailable
	}
	return out, nil
}

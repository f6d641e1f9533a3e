// Package catalog fetches image metadata from the OpenAerialMap API.
package catalog

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/openaerialmap/oam-mirror/pkg/errors"
	"github.com/openaerialmap/oam-mirror/pkg/version"
)

// PageLimit is the page size for /meta requests. The API serves at most
// 100 results per page.
const PageLimit = 100

const (
	metaPath       = "/meta"
	requestTimeout = 60 * time.Second
)

// Client pages through the OpenAerialMap /meta endpoint.
type Client struct {
	baseURL string
	client  *http.Client

	// pageLimit is PageLimit outside of tests.
	pageLimit int
}

// NewClient creates a Client for the API at the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		client:    &http.Client{Timeout: requestTimeout},
		pageLimit: PageLimit,
	}
}

// UnavailableError means the API couldn't serve the first page, so there is
// no snapshot to sync from.
type UnavailableError struct {
	Err error
}

func (err UnavailableError) Error() string {
	return fmt.Sprintf("catalog unavailable: %s", err.Err)
}

// FriendlyMessage implements the interface checked by
// errors.GetPrintableMessage.
func (err UnavailableError) FriendlyMessage() string {
	return fmt.Sprintf("The OpenAerialMap API isn't reachable right now (%s).\n"+
		"Nothing was synced. Try again once the API recovers.", err.Err)
}

// FetchAll returns every record the API serves, in catalog order. A failure
// on the first page returns an UnavailableError. A failure on a later page
// stops pagination, and the records fetched so far form the snapshot.
func (c *Client) FetchAll() (Snapshot, error) {
	log.Info("Fetching images page 1...")
	first, err := c.fetchPage(1)
	if err != nil {
		return nil, UnavailableError{Err: err}
	}

	snapshot := parseRecords(first.Results)
	totalPages := (first.Meta.Found + c.pageLimit - 1) / c.pageLimit
	log.Infof("Found %d images across %d pages", first.Meta.Found, totalPages)

	for page := 2; page <= totalPages; page++ {
		log.Infof("Fetching images page %d/%d...", page, totalPages)
		data, err := c.fetchPage(page)
		if err != nil {
			log.WithError(err).Errorf(
				"Failed to fetch page %d, continuing with a partial snapshot", page)
			break
		}
		if len(data.Results) == 0 {
			break
		}
		snapshot = append(snapshot, parseRecords(data.Results)...)
	}

	log.Infof("Fetched %d images total", len(snapshot))
	return snapshot, nil
}

type metaPage struct {
	Results []json.RawMessage `json:"results"`
	Meta    struct {
		Found int `json:"found"`
	} `json:"meta"`
}

func (c *Client) fetchPage(page int) (metaPage, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("limit", strconv.Itoa(c.pageLimit))
	pageURL := fmt.Sprintf("%s%s?%s", c.baseURL, metaPath, params.Encode())

	req, err := http.NewRequest(http.MethodGet, pageURL, nil)
	if err != nil {
		return metaPage{}, errors.WithContext(err, "create request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent())

	resp, err := c.client.Do(req)
	if err != nil {
		return metaPage{}, errors.WithContext(err, "get")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return metaPage{}, fmt.Errorf("unexpected status %q", resp.Status)
	}

	var parsed metaPage
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return metaPage{}, errors.WithContext(err, "decode response")
	}
	return parsed, nil
}

func parseRecords(raws []json.RawMessage) []Record {
	var records []Record
	for _, raw := range raws {
		record, err := ParseRecord(raw)
		if err != nil {
			log.WithError(err).Warn("Skipping malformed catalog record")
			continue
		}
		records = append(records, record)
	}
	return records
}

func userAgent() string {
	return fmt.Sprintf("OAM-CloudNativeMirror/%s", version.Version)
}

package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/theoremus-urban-solutions/livetrack/track"
)

// ErrVehicleNotInFeed is returned when the feed parsed fine but carries no
// entity for the requested vehicle.
var ErrVehicleNotInFeed = errors.New("feed: vehicle not present in feed")

// Client fetches a vehicle positions feed over HTTP.
type Client struct {
	httpClient *http.Client
	feedURL    string
	now        func() time.Time
}

// NewClient creates a feed client. A zero timeout defaults to 15s.
func NewClient(feedURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		feedURL:    feedURL,
		now:        time.Now,
	}
}

// FetchSnapshot fetches the feed and extracts the snapshot for one vehicle.
// Non-2xx responses and transport errors are failures; a feed without the
// vehicle returns ErrVehicleNotInFeed.
func (c *Client) FetchSnapshot(ctx context.Context, vehicleID string) (track.Snapshot, error) {
	body, err := c.fetch(ctx)
	if err != nil {
		return track.Snapshot{}, err
	}
	snap, ok := ParseVehicle(body, vehicleID)
	if !ok {
		return track.Snapshot{}, fmt.Errorf("%w: %s", ErrVehicleNotInFeed, vehicleID)
	}
	return snap, nil
}

func (c *Client) fetch(ctx context.Context) ([]byte, error) {
	u, err := url.Parse(c.feedURL)
	if err != nil {
		return nil, fmt.Errorf("feed: bad url %s: %w", c.feedURL, err)
	}
	q := u.Query()
	q.Set("_", strconv.FormatInt(c.now().UnixMilli(), 10))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("feed: failed to create request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-store")
	req.Header.Set("Pragma", "no-cache")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed: failed to fetch %s: %w", c.feedURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("feed: HTTP %d from %s", resp.StatusCode, c.feedURL)
	}
	return io.ReadAll(resp.Body)
}

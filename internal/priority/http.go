package priority

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPFeed reads the call batch from a real-time demand service. Scores
// are recomputed locally when the upstream omits them.
type HTTPFeed struct {
	Endpoint string
	Client   *http.Client
}

func NewHTTPFeed(endpoint string, timeout time.Duration) *HTTPFeed {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &HTTPFeed{Endpoint: endpoint, Client: &http.Client{Timeout: timeout}}
}

func (f *HTTPFeed) CurrentCalls(ctx context.Context) ([]Call, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.Endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("priority feed status %d", resp.StatusCode)
	}
	var out struct {
		CallsDetail []Call `json:"calls_detail"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	unscored := false
	for _, c := range out.CallsDetail {
		if c.PriorityScore == 0 {
			unscored = true
			break
		}
	}
	if unscored {
		ScoreCalls(out.CallsDetail)
	}
	return out.CallsDetail, nil
}

package predictor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPPredictor queries the ML-serving process over HTTP.
type HTTPPredictor struct {
	Endpoint string
	Client   *http.Client
}

func NewHTTPPredictor(endpoint string, timeout time.Duration) *HTTPPredictor {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &HTTPPredictor{Endpoint: endpoint, Client: &http.Client{Timeout: timeout}}
}

// Predict POSTs the encoded features and returns predicted minutes. The
// serving side answers SentinelWait itself for unresolvable codes, so any
// error here is a transport failure and the caller degrades.
func (p *HTTPPredictor) Predict(ctx context.Context, f Features) (float64, error) {
	b, err := json.Marshal(f)
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Endpoint, bytes.NewReader(b))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := p.Client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("predictor status %d", resp.StatusCode)
	}
	var out struct {
		PredictedWaitingTime float64 `json:"predicted_waiting_time"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, err
	}
	return out.PredictedWaitingTime, nil
}

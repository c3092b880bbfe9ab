package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/examscore/internal/adapters/http/api"
	"github.com/okian/examscore/internal/domain/inputs"
	"github.com/okian/examscore/pkg/logger"
)

// HTTPClient wraps http.Client with timeout
type HTTPClient struct {
	client *http.Client
}

func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{client: &http.Client{Timeout: timeout}}
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with a JSON body and a request id header.
func (c *HTTPClient) Post(ctx context.Context, url, requestID string, body any) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(api.HeaderRequestID, requestID)
	return c.client.Do(req)
}

// submitAll posts every input through a worker pool and returns the samples
// in input order.
func submitAll(ctx context.Context, config *Config, batch []inputs.Raw, stats *Stats) []Sample {
	log := logger.Get()
	log.Info(ctx, "submitting predictions", logger.Int("count", len(batch)), logger.Int("workers", config.Workers))

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/api/predict"
	samples := make([]Sample, len(batch))

	var (
		submitted   int64
		successful  int64
		rateLimited int64
		failed      int64
		lastReport  atomic.Int64
	)

	jobs := make(chan int, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	for range config.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				s := submitSingle(ctx, client, url, batch[i])
				samples[i] = s

				atomic.AddInt64(&submitted, 1)
				switch {
				case s.Result != nil:
					atomic.AddInt64(&successful, 1)
				case s.Status == http.StatusTooManyRequests:
					atomic.AddInt64(&rateLimited, 1)
				default:
					atomic.AddInt64(&failed, 1)
				}

				now := time.Now().UnixNano()
				last := lastReport.Load()
				if config.Verbose && now-last >= int64(progressInterval) && lastReport.CompareAndSwap(last, now) {
					log.Info(ctx, "progress",
						logger.Int("submitted", int(atomic.LoadInt64(&submitted))),
						logger.Int("total", len(batch)),
						logger.Int("successful", int(atomic.LoadInt64(&successful))),
						logger.Int("failed", int(atomic.LoadInt64(&failed))))
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := range batch {
			select {
			case <-ctx.Done():
				return
			case jobs <- i:
			}
		}
	}()

	wg.Wait()

	stats.Submitted = int(atomic.LoadInt64(&submitted))
	stats.Successful = int(atomic.LoadInt64(&successful))
	stats.RateLimited = int(atomic.LoadInt64(&rateLimited))
	stats.Failed = int(atomic.LoadInt64(&failed))

	log.Info(ctx, "submission completed",
		logger.Int("successful", stats.Successful),
		logger.Int("rateLimited", stats.RateLimited),
		logger.Int("failed", stats.Failed))

	return samples[:stats.Submitted]
}

// submitSingle posts one input set and decodes the outcome on success.
func submitSingle(ctx context.Context, client *HTTPClient, url string, raw inputs.Raw) Sample {
	s := Sample{RequestID: uuid.NewString(), Inputs: raw}

	resp, err := client.Post(ctx, url, s.RequestID, raw)
	if err != nil {
		s.Err = err.Error()
		return s
	}
	defer func() { _ = resp.Body.Close() }()

	s.Status = resp.StatusCode
	s.EchoedID = resp.Header.Get(api.HeaderRequestID)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		s.Err = err.Error()
		return s
	}
	if resp.StatusCode != http.StatusOK {
		s.Err = string(bytes.TrimSpace(body))
		return s
	}

	var result Result
	if err := json.Unmarshal(body, &result); err != nil {
		s.Err = fmt.Sprintf("decode response: %v", err)
		return s
	}
	s.Result = &result
	return s
}

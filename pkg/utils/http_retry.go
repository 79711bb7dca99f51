package utils

import (
	"net/http"
	"time"
)

const maxRetryAttempts = 3

// retryDelayUnit is the base of the exponential backoff; overridden in tests.
var retryDelayUnit = time.Second

// DoRequestWithRetry sends req, retrying up to maxRetryAttempts times on 5xx
// responses with exponential backoff (retryDelayUnit * 2^attempt). It gives
// up early, returning the context error, if req's context is canceled while
// waiting between attempts. The final response (success or last failure) is
// returned with a non-nil error only when the request itself could not be
// sent or the context was canceled.
func DoRequestWithRetry(client *http.Client, req *http.Request) (*http.Response, error) {
	var resp *http.Response
	var err error

	for attempt := 0; attempt < maxRetryAttempts; attempt++ {
		if attempt > 0 {
			delay := retryDelayUnit * time.Duration(1<<uint(attempt-1))
			timer := time.NewTimer(delay)
			select {
			case <-req.Context().Done():
				timer.Stop()
				if resp != nil {
					resp.Body.Close()
				}
				return nil, req.Context().Err()
			case <-timer.C:
			}
		}

		resp, err = client.Do(req)
		if err != nil {
			if req.Context().Err() != nil {
				return nil, req.Context().Err()
			}
			continue
		}
		if resp.StatusCode < 500 || resp.StatusCode > 599 {
			return resp, nil
		}
		if attempt < maxRetryAttempts-1 {
			resp.Body.Close()
		}
	}

	return resp, err
}

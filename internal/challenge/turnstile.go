// Package challenge verifies bot-challenge tokens submitted with public forms.
package challenge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/yourusername/lyrics-catalog/internal/logging"
	"github.com/yourusername/lyrics-catalog/internal/metrics"
)

var (
	// ErrRejected means the verification service answered and said no.
	ErrRejected = errors.New("challenge verification failed")

	// ErrUnavailable means no usable answer was obtained.
	ErrUnavailable = errors.New("challenge verification service unavailable")
)

// Verifier checks a challenge token for the client at remoteIP.
type Verifier interface {
	Verify(ctx context.Context, token, remoteIP string) error
}

const breakerName = "turnstile"

// Turnstile is a siteverify client. Calls are not retried.
type Turnstile struct {
	secret    string
	verifyURL string
	client    *http.Client
	cb        *gobreaker.CircuitBreaker[bool]
	logger    zerolog.Logger
}

type siteverifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

func NewTurnstile(secret, verifyURL string, timeout time.Duration) *Turnstile {
	logger := logging.For("challenge")
	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)

	cb := gobreaker.NewCircuitBreaker[bool](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().Str("from", from.String()).Str("to", to.String()).Msg("verification circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		},
	})

	return &Turnstile{
		secret:    secret,
		verifyURL: verifyURL,
		client:    &http.Client{Timeout: timeout},
		cb:        cb,
		logger:    logger,
	}
}

// Verify returns nil, ErrRejected or ErrUnavailable (possibly wrapped).
func (t *Turnstile) Verify(ctx context.Context, token, remoteIP string) error {
	ok, err := t.cb.Execute(func() (bool, error) {
		return t.siteverify(ctx, token, remoteIP)
	})
	if err != nil {
		metrics.ChallengeOutcomes.WithLabelValues("unavailable").Inc()
		t.logger.Error().Err(err).Msg("challenge verification unavailable")
		if errors.Is(err, ErrUnavailable) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !ok {
		metrics.ChallengeOutcomes.WithLabelValues("rejected").Inc()
		return ErrRejected
	}
	metrics.ChallengeOutcomes.WithLabelValues("success").Inc()
	return nil
}

func (t *Turnstile) siteverify(ctx context.Context, token, remoteIP string) (bool, error) {
	form := url.Values{
		"secret":   {t.secret},
		"response": {token},
	}
	if remoteIP != "" && remoteIP != "unknown" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return false, fmt.Errorf("%w: building request: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return false, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var result siteverifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false, fmt.Errorf("%w: decoding response: %v", ErrUnavailable, err)
	}
	if !result.Success {
		t.logger.Info().Strs("error_codes", result.ErrorCodes).Msg("challenge token rejected")
	}
	return result.Success, nil
}

package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Matcher selects the response a correlation window waits for.
type Matcher func(Response) bool

// MatchURL matches GET responses whose URL contains fragment.
func MatchURL(fragment string) Matcher {
	return MatchRequest(fragment, "GET")
}

// MatchRequest matches responses whose URL contains fragment and whose
// request used method.
func MatchRequest(fragment, method string) Matcher {
	method = strings.ToUpper(method)
	return func(r Response) bool {
		return strings.Contains(r.URL(), fragment) && strings.EqualFold(r.Method(), method)
	}
}

// Transform reshapes a decoded JSON body. A nil result means no data.
type Transform func(data any) (any, error)

// FetchOptions configures FetchData.
type FetchOptions struct {
	// Endpoint is the URL fragment the response must contain.
	Endpoint string
	// Method defaults to GET.
	Method string
	// Match overrides Endpoint and Method when set.
	Match Matcher
	// Target is the page to navigate to.
	Target    string
	Timeout   time.Duration
	Transform Transform
}

func (o FetchOptions) matcher() Matcher {
	if o.Match != nil {
		return o.Match
	}
	method := o.Method
	if method == "" {
		method = "GET"
	}
	return MatchRequest(o.Endpoint, method)
}

// Correlate arms a response observer, runs trigger, and returns the first
// response match accepts before timeout. The observer is armed before the
// trigger so a response that arrives while trigger is still running is
// not missed.
func (b *Bridge) Correlate(ctx context.Context, match Matcher, timeout time.Duration, trigger func(ctx context.Context) error) (Response, error) {
	if timeout == 0 {
		timeout = b.fetchTimeout
	}
	parent := ctx
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	matched := make(chan Response, 1)
	unsubscribe := b.driver.OnResponse(func(r Response) {
		if !match(r) {
			return
		}
		select {
		case matched <- r:
		default:
		}
	})
	defer unsubscribe()

	if err := trigger(ctx); err != nil {
		if parent.Err() != nil {
			return nil, noData(ReasonCanceled, "", parent.Err())
		}
		return nil, noData(ReasonTrigger, "", err)
	}

	select {
	case r := <-matched:
		return r, nil
	case <-ctx.Done():
		if parent.Err() != nil {
			return nil, noData(ReasonCanceled, "", parent.Err())
		}
		return nil, noData(ReasonTimeout, "", fmt.Errorf("no matching response within %s", timeout))
	}
}

// ProcessResponse applies the 2xx status gate and decodes the JSON body.
func ProcessResponse(r Response) (any, error) {
	if r.Status() < 200 || r.Status() > 299 {
		return nil, noData(ReasonStatus, r.URL(), &StatusError{Code: r.Status()})
	}
	body, err := r.Body()
	if err != nil {
		return nil, noData(ReasonDecode, r.URL(), fmt.Errorf("read body: %w", err))
	}
	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, noData(ReasonDecode, r.URL(), err)
	}
	return data, nil
}

// FetchData navigates to opts.Target and returns the decoded payload of the
// matching backend response. Every failure mode returns an error matching
// ErrNoData; the reason tells them apart.
func (b *Bridge) FetchData(ctx context.Context, opts FetchOptions) (data any, err error) {
	start := time.Now()
	defer func() {
		result := "ok"
		if err != nil {
			result = string(ReasonOf(err))
			b.log.WithError(err).Debugf("fetch %s from %s", opts.Endpoint, opts.Target)
		}
		b.metrics.ObserveFetch(result, time.Since(start))
	}()

	resp, err := b.Correlate(ctx, opts.matcher(), opts.Timeout, func(ctx context.Context) error {
		return b.Navigate(ctx, opts.Target)
	})
	if err != nil {
		var nd *NoDataError
		if errors.As(err, &nd) && nd.URL == "" {
			nd.URL = opts.Endpoint
		}
		return nil, err
	}
	return Decode(resp, opts.Transform)
}

// Decode runs ProcessResponse and then transform, or the empty-aggregate
// check when transform is nil.
func Decode(r Response, transform Transform) (any, error) {
	data, err := ProcessResponse(r)
	if err != nil {
		return nil, err
	}

	if transform != nil {
		out, err := transform(data)
		if err != nil {
			return nil, noData(ReasonExtract, r.URL(), err)
		}
		if out == nil {
			return nil, noData(ReasonExtract, r.URL(), nil)
		}
		return out, nil
	}

	if isEmpty(data) {
		return nil, noData(ReasonEmpty, r.URL(), nil)
	}
	return data, nil
}

func isEmpty(data any) bool {
	switch v := data.(type) {
	case nil:
		return true
	case map[string]any:
		return len(v) == 0
	case []any:
		return len(v) == 0
	}
	return false
}
